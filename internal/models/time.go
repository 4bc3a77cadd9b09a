package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout is how MustApp writes release dates ("2015-01-01").
const dateLayout = "2006-01-02"

var null = []byte("null")

// Time is a nullable timestamp. MustApp sends "2020-01-01T00:00:00.000000Z"; a JSON null decodes to the zero value.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{Time: t} }

// Valid reports whether the timestamp was present.
func (t Time) Valid() bool { return !t.IsZero() }

// Ptr returns nil for a missing timestamp.
func (t Time) Ptr() *time.Time {
	if !t.Valid() {
		return nil
	}
	v := t.Time
	return &v
}

// UnmarshalJSON implements [json.Unmarshaler].
func (t *Time) UnmarshalJSON(data []byte) error {
	parsed, err := parseTimeJSON(data, time.RFC3339Nano)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements [json.Marshaler].
func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return null, nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Date is a nullable calendar date.
type Date struct {
	time.Time
}

// NewDate builds a UTC date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Valid reports whether the date was present.
func (d Date) Valid() bool { return !d.IsZero() }

// Ptr returns nil for a missing date.
func (d Date) Ptr() *time.Time {
	if !d.Valid() {
		return nil
	}
	v := d.Time
	return &v
}

// String formats the date as YYYY-MM-DD, or "" when missing.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format(dateLayout)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := parseTimeJSON(data, dateLayout)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// MarshalJSON implements [json.Marshaler].
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return null, nil
	}
	return json.Marshal(d.String())
}

// parseTimeJSON decodes a JSON string or null. Both the date-only layout and RFC 3339 are accepted regardless of
// the preferred layout, since the API is not consistent about it.
func parseTimeJSON(data []byte, preferred string) (time.Time, error) {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{preferred, time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

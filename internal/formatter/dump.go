package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/desertthunder/mustx/internal/models"
	"github.com/desertthunder/mustx/internal/shared"
	"gopkg.in/yaml.v3"
)

// Row is one exported entry as text, in [ExportColumns] order. Missing values are "".
type Row []string

// Rows formats list with the export columns of key.
func Rows(key models.ListKey, list models.UserProductList) []Row {
	cols := exportColumns[key]
	rows := make([]Row, len(list))
	for i := range list {
		row := make(Row, len(cols))
		for c, col := range cols {
			row[c] = formatValue(col.value(&list[i]), col.kind)
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV writes list as CSV with a header row.
func WriteCSV(w io.Writer, key models.ListKey, list models.UserProductList) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ExportColumns(key)); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range Rows(key, list) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// WriteYAML writes list as a YAML sequence of mappings keyed by column name, keeping column order.
func WriteYAML(w io.Writer, key models.ListKey, list models.UserProductList) error {
	names := ExportColumns(key)
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range Rows(key, list) {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, name := range names {
			if row[i] == "" {
				continue
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: name},
				scalar(row[i], exportColumns[key][i].kind),
			)
		}
		seq.Content = append(seq.Content, m)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

func scalar(value string, k kind) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	switch k {
	case kindNumber:
		n.Tag = "!!int"
	default:
		n.Tag = "!!str"
	}
	return n
}

func formatValue(v any, k kind) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case time.Time:
		if k == kindDate {
			return val.Format("2006-01-02")
		}
		return val.Local().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

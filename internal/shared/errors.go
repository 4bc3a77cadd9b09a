package shared

import "errors"

var (
	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// MustApp errors
	ErrAPIRequest         = errors.New("MustApp API request failed")
	ErrUserNotFound       = errors.New("MustApp user not found")
	ErrPrivateProfile     = errors.New("MustApp profile is private")
	ErrProfileNotFound    = errors.New("profile data not found in page")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Cache errors
	ErrCacheMiss    = errors.New("cache miss")
	ErrInvalidEntry = errors.New("invalid cache entry")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidFlag     = errors.New("invalid flag value")
)

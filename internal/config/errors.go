package config

import (
	"errors"
	"fmt"
)

// Load and Get fail with one of these.  Field-scoped failures arrive wrapped
// in a *FieldError, so callers can both match the class with errors.Is and
// recover the offending key with errors.As.
var (
	ErrMissingField  = errors.New("missing field")
	ErrInvalidFormat = errors.New("invalid format")
	ErrNotLoaded     = errors.New("configuration not loaded")
)

// FieldError ties a failure class to the config key that caused it.
type FieldError struct {
	Field  string // koanf key, e.g. "identity_provider.client_id"
	Reason string // optional detail, never the raw value
	Err    error  // ErrMissingField or ErrInvalidFormat
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %s: %v: %s", e.Field, e.Err, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

func invalid(field, reason string) error {
	return &FieldError{Field: field, Reason: reason, Err: ErrInvalidFormat}
}

// Fields lists every key named by the FieldErrors inside err, in order.
// cmd/drinks prints these before aborting startup.
func Fields(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if fe, ok := e.(*FieldError); ok {
			out = append(out, fe.Field)
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
			return
		}
		walk(errors.Unwrap(e))
	}
	walk(err)
	return out
}

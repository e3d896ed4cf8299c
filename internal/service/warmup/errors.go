package warmup

import (
	"errors"
	"fmt"
)

// Sentinel errors for the warmup service layer.
var (
	ErrInvalidConfig = errors.New("invalid warmup config")
	ErrNotFound      = errors.New("warmup config not found")
	ErrConflict      = errors.New("warmup config was modified concurrently")
	ErrLocked        = errors.New("warmup config is locked by another writer")
	ErrFutureTick    = errors.New("ramp tick is for a day that has not started")
)

// ValidationError is a single rejected field. It unwraps to ErrInvalidConfig.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// ValidationErrors flattens err into the field errors it carries, whether it
// is a single *ValidationError or an errors.Join of several.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ValidationError
		for _, e := range joined.Unwrap() {
			out = append(out, ValidationErrors(e)...)
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return []*ValidationError{ve}
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

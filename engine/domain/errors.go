package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for batch precondition failures.
var (
	ErrLineCountMismatch = errors.New("input files differ in line count")
	ErrMissingTemplate   = errors.New("prompt template not found")
)

// ConfigError wraps a sentinel with the offending inputs. Configuration
// errors are fatal and raised before any concurrent work starts.
type ConfigError struct {
	Detail  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Wrapped, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// NewConfigError creates a ConfigError.
func NewConfigError(detail string, wrapped error) *ConfigError {
	return &ConfigError{Detail: detail, Wrapped: wrapped}
}

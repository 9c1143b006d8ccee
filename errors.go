package stratum

import (
	"errors"
	"fmt"
)

// ConfigurationError reports bad user-supplied configuration data: a value
// that should be a mapping isn't, a required key is missing, or a module's
// CheckConfig found the values inconsistent. The Path field carries the
// qualified dotted name of the offending block.
type ConfigurationError struct {
	// Path is the qualified dotted path to the invalid block (may be empty).
	Path string

	// Message describes what's wrong.
	Message string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration error for a path.
func NewConfigurationError(path, message string) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: message}
}

// Configf creates a configuration error with a formatted message.
func Configf(path, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ProgrammerError reports a bug in the embedding application: a module
// without a name, duplicate sibling names, or walking an already-built
// tree that lacks a declared block. These are caller defects, not data
// errors, and are not expected from untrusted input.
type ProgrammerError struct {
	Message string
}

// Error implements the error interface.
func (e *ProgrammerError) Error() string {
	return e.Message
}

// Programmerf creates a programmer error with a formatted message.
func Programmerf(format string, args ...any) *ProgrammerError {
	return &ProgrammerError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsProgrammerError reports whether err is (or wraps) a ProgrammerError.
func IsProgrammerError(err error) bool {
	var pe *ProgrammerError
	return errors.As(err, &pe)
}

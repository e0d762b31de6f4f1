package model

import (
	"errors"
	"fmt"
)

// ErrConfig matches every configuration error via errors.Is
var ErrConfig = errors.New("configuration error")

// ConfigError reports invalid model configuration: unknown namespaces,
// malformed weights or unsupported flags.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Field string
	Msg   string
	cause error
}

func newConfigError(field, msg string) *ConfigError {
	return &ConfigError{Field: field, Msg: msg}
}

func wrapConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Msg: err.Error(), cause: err}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Msg)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrConfig) hold for every *ConfigError
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

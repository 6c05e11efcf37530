package backtest

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks malformed bar series.
	ErrInput = errors.New("invalid input")
	// ErrConfiguration marks rejected run parameters.
	ErrConfiguration = errors.New("invalid configuration")
)

// InputError points at the first offending bar of a series.
type InputError struct {
	Symbol string
	Index  int
	Reason string
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrInput, e.Symbol, e.Reason)
	}
	return fmt.Sprintf("%s: %s bar %d: %s", ErrInput, e.Symbol, e.Index, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInput }

// ConfigError wraps the validation errors of one config section.
type ConfigError struct {
	Section string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Section, e.Err)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigError) Unwrap() error { return e.Err }

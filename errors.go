package charshadow

import (
	"errors"
	"fmt"
)

// Sentinel kinds for charshadow errors.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrConfigLoad    = errors.New("config load failed")
	ErrMissingSource = errors.New("missing light source or target provider")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func wrapLoad(err error, what string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrConfigLoad, what, err)
}

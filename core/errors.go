package core

import (
	"errors"
	"fmt"
)

var (
	// ErrData marks empty or degenerate history, it is recovered with the fallback parameters and never returned
	ErrData = errors.New("insufficient historical data")

	// ErrConfiguration is returned before any simulation work starts
	ErrConfiguration = errors.New("invalid simulation configuration")

	// ErrDistribution is a configuration error raised while building the sampling distribution
	ErrDistribution = fmt.Errorf("%w: invalid distribution", ErrConfiguration)

	// ErrNumeric means a NaN or infinite value showed up where a total order is required
	ErrNumeric = errors.New("non-finite value")
)

// NumericError pinpoints the non-finite value, Step and Trial are -1 when they do not apply
type NumericError struct {
	Stage string
	Step  int
	Trial int
	Value float64
}

func (e *NumericError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%v in %s: %v", ErrNumeric, e.Stage, e.Value)
	}
	return fmt.Sprintf("%v in %s at step %d of trial %d: %v", ErrNumeric, e.Stage, e.Step, e.Trial, e.Value)
}

func (e *NumericError) Unwrap() error {
	return ErrNumeric
}

func configurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

package pricing

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoStandingCharge means no rule window contains the call's start time.
	ErrNoStandingCharge = errors.New("no standing price determined")

	// ErrInvalidRule marks a rule rejected by Validate.
	ErrInvalidRule = errors.New("invalid pricing rule")

	// ErrCallTooLong is returned by a Pricer with a MaxDuration bound.
	ErrCallTooLong = errors.New("call exceeds maximum priceable duration")
)

// ConfigurationError reports a defect in the pricing schedule. It is fatal for
// the computation that hit it and is never resolved by a default rate.
type ConfigurationError struct {
	Err    error
	Detail string
}

// Error prefixes the cause and its detail with "pricing configuration".
func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return "pricing configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("pricing configuration: %v: %s", e.Err, e.Detail)
}

// Unwrap returns the underlying sentinel, such as ErrNoStandingCharge.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err carries a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func noStandingCharge(start time.Time, rules int) error {
	return &ConfigurationError{
		Err:    ErrNoStandingCharge,
		Detail: fmt.Sprintf("start %s matches none of %d rules", TimeOfDayOf(start), rules),
	}
}

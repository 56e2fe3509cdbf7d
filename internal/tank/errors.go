package tank

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the sensor path is absent or holds no usable readings.
	// It is a terminal state, not a failure.
	ErrNoData = errors.New("no data available")

	// ErrInvalidPeriod is returned for an unrecognized bucketing selector.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrMalformedObservation marks a record skipped before aggregation.
	ErrMalformedObservation = errors.New("malformed observation")
)

// FetchError wraps a transport or auth failure against the observation store.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func malformed(id, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrMalformedObservation, id, reason)
}

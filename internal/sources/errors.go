package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means a domain produced nothing this cycle.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidReading means a value was outside physical bounds.
	ErrInvalidReading = errors.New("invalid reading")
)

// DomainError attributes a source failure to one metric domain.
type DomainError struct {
	Domain Domain
	Err    error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %v", e.Domain, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

func unavailable(d Domain, cause error) error {
	if cause == nil {
		return &DomainError{Domain: d, Err: ErrSourceUnavailable}
	}
	return &DomainError{Domain: d, Err: fmt.Errorf("%w: %v", ErrSourceUnavailable, cause)}
}

func invalid(d Domain, format string, args ...interface{}) error {
	return &DomainError{Domain: d, Err: fmt.Errorf("%w: %s", ErrInvalidReading, fmt.Sprintf(format, args...))}
}

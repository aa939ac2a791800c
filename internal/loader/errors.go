package loader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDataUnavailable is returned when the source cannot be fetched
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchemaMismatch is returned when required columns are missing
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrMalformedData is returned when cells cannot be parsed
	ErrMalformedData = errors.New("malformed data")
)

// SchemaMismatchError lists the required columns absent from a source
type SchemaMismatchError struct {
	Source  string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: missing columns %s", e.Source, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchemaMismatch) match
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// StatusError records a non-success HTTP response
type StatusError struct {
	Source     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: fetching %s: unexpected status %d", ErrDataUnavailable, e.Source, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrDataUnavailable
}

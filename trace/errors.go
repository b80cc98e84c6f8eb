package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a line has fewer than two fields.
	ErrMissingField = errors.New("missing field")

	// ErrUnknownAccessType is returned for access tokens other than I, L, S
	// and M.
	ErrUnknownAccessType = errors.New("unknown access type")

	// ErrInvalidAddress is returned when the address is not hexadecimal.
	ErrInvalidAddress = errors.New("invalid address")
)

// ParseError reports a malformed trace line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" && e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}

	if e.Line > 0 {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
	}

	return fmt.Sprintf("%q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseLine parses a single trace line.
func ParseLine(line string) (Access, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Access{}, &ParseError{Text: line, Err: ErrMissingField}
	}

	accessType, err := ParseAccessType(fields[0])
	if err != nil {
		return Access{}, &ParseError{Text: line, Err: err}
	}

	addr, extra, _ := strings.Cut(fields[1], ",")
	if !isHex(trimHexPrefix(addr)) {
		return Access{}, &ParseError{
			Text: line,
			Err:  fmt.Errorf("%w: %q", ErrInvalidAddress, addr),
		}
	}

	return Access{
		Type:    accessType,
		Address: addr,
		Extra:   extra,
	}, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}

	return true
}

// Scanner reads accesses from a trace, one line at a time. Blank lines are
// skipped.
type Scanner struct {
	s      *bufio.Scanner
	line   int
	access Access
	err    error
}

// MaxLineSize is the longest trace line a Scanner accepts.
const MaxLineSize = 1 << 20

// NewScanner creates a Scanner that reads from r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	return &Scanner{s: s}
}

// Scan advances to the next access. It returns false at the end of the input
// or on the first error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	for s.s.Scan() {
		s.line++

		text := s.s.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		access, err := ParseLine(text)
		if err != nil {
			if perr, ok := err.(*ParseError); ok {
				perr.Line = s.line
			}

			s.err = err

			return false
		}

		s.access = access

		return true
	}

	if err := s.s.Err(); err != nil {
		s.err = &ParseError{Line: s.line + 1, Err: err}
	}

	return false
}

// Access returns the most recent access read by Scan.
func (s *Scanner) Access() Access {
	return s.access
}

// Line returns the number of lines consumed so far.
func (s *Scanner) Line() int {
	return s.line
}

// Err returns the first error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

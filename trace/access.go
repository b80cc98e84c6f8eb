// Package trace parses memory-access trace files.
//
// A trace line has the form `<AccessType> <Address>,<Size>`, for example
// `I 04016d0,3` or `S 7ff000398,8`. The access type is one of I (instruction
// fetch), L (load), S (store) and M (modify).
package trace

import (
	"fmt"
	"strings"
)

// AccessType is the kind of a memory access.
type AccessType int

// The access types, declared in the order in which reports break ties.
const (
	Instruction AccessType = iota
	Load
	Store
	Modify
)

// NumAccessTypes is the number of access types.
const NumAccessTypes = 4

// AllAccessTypes lists every access type in declaration order.
var AllAccessTypes = [NumAccessTypes]AccessType{Instruction, Load, Store, Modify}

var accessSymbols = [NumAccessTypes]string{"I", "L", "S", "M"}

var accessLabels = [NumAccessTypes]string{
	"Instructions",
	"Loads",
	"Stores",
	"Modifies",
}

// ParseAccessType converts a trace token into an AccessType.
func ParseAccessType(token string) (AccessType, error) {
	switch token {
	case "I":
		return Instruction, nil
	case "L":
		return Load, nil
	case "S":
		return Store, nil
	case "M":
		return Modify, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAccessType, token)
	}
}

// Symbol returns the single-letter token used in trace files.
func (t AccessType) Symbol() string {
	if !t.valid() {
		return "?"
	}

	return accessSymbols[t]
}

// Label returns the plural name used in reports.
func (t AccessType) Label() string {
	if !t.valid() {
		return fmt.Sprintf("AccessType(%d)", int(t))
	}

	return accessLabels[t]
}

// String implements fmt.Stringer.
func (t AccessType) String() string {
	return t.Symbol()
}

// IsInstruction reports whether the access is an instruction fetch.
func (t AccessType) IsInstruction() bool {
	return t == Instruction
}

func (t AccessType) valid() bool {
	return t >= 0 && int(t) < NumAccessTypes
}

// MarshalText implements encoding.TextMarshaler.
func (t AccessType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccessType, int(t))
	}

	return []byte(t.Symbol()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *AccessType) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Access is one parsed trace record.
type Access struct {
	Type    AccessType
	Address string
	Extra   string
}

// pageOffsetDigits is the number of trailing hex digits that address a byte
// within a page.
const pageOffsetDigits = 3

// PageKey returns the key of the page that contains addr. The last three hex
// digits are replaced by "000". A "0x" prefix is ignored.
func PageKey(addr string) string {
	addr = trimHexPrefix(addr)
	if len(addr) <= pageOffsetDigits {
		return strings.Repeat("0", pageOffsetDigits)
	}

	return addr[:len(addr)-pageOffsetDigits] + strings.Repeat("0", pageOffsetDigits)
}

// Page returns the key of the page that contains the access.
func (a Access) Page() string {
	return PageKey(a.Address)
}

// FormatPage renders a page key as it appears in reports: leading zeros are
// dropped and "0x" is prepended.
func FormatPage(key string) string {
	return "0x" + strings.TrimLeft(key, "0")
}

func trimHexPrefix(addr string) string {
	if len(addr) >= 2 && addr[0] == '0' && (addr[1] == 'x' || addr[1] == 'X') {
		return addr[2:]
	}

	return addr
}

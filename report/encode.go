package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/memtrace/analysis"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is an output encoding for reports.
type Format string

// Supported formats.
const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name. An empty name means text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatMsgpack:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}

// Encoder writes reports in one format.
type Encoder interface {
	Encode(r analysis.Report) error
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer, f Format) (Encoder, error) {
	switch f {
	case FormatText, "":
		return textEncoder{w: w}, nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return valueEncoder{enc}, nil
	case FormatMsgpack:
		return valueEncoder{msgpack.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}

type valueEncoder struct {
	enc interface{ Encode(v any) error }
}

func (e valueEncoder) Encode(r analysis.Report) error {
	return e.enc.Encode(r)
}

type textEncoder struct {
	w io.Writer
}

func (e textEncoder) Encode(r analysis.Report) error {
	return Write(e.w, r)
}

// DecodeMsgpack reads every report from a msgpack stream produced by a
// FormatMsgpack encoder.
func DecodeMsgpack(r io.Reader) ([]analysis.Report, error) {
	dec := msgpack.NewDecoder(r)

	var reports []analysis.Report

	for {
		var rep analysis.Report

		err := dec.Decode(&rep)
		if err == io.EOF {
			return reports, nil
		}

		if err != nil {
			return nil, err
		}

		reports = append(reports, rep)
	}
}

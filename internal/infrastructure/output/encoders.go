package output

import (
	"encoding/json"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/reglet-dev/glimpse/internal/application/dto"
)

// JSONFormatter formats inspections as JSON.
type JSONFormatter struct {
	writer io.Writer
	indent bool
}

// NewJSONFormatter creates a new JSON formatter.
// If indent is true, the output will be pretty-printed with indentation.
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{writer: w, indent: indent}
}

// Format writes the inspection as JSON.
func (f *JSONFormatter) Format(in *dto.Inspection) error {
	enc := json.NewEncoder(f.writer)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(in)
}

// YAMLFormatter formats inspections as YAML.
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format writes the inspection as YAML.
func (f *YAMLFormatter) Format(in *dto.Inspection) error {
	encoder := yaml.NewEncoder(f.writer, yaml.Indent(2))

	if err := encoder.Encode(in); err != nil {
		return err
	}

	return encoder.Close()
}

// MsgpackFormatter writes inspections as MessagePack, for snapshots that
// are diffed or replayed by tools rather than read.
type MsgpackFormatter struct {
	writer io.Writer
}

// NewMsgpackFormatter creates a new MessagePack formatter.
func NewMsgpackFormatter(w io.Writer) *MsgpackFormatter {
	return &MsgpackFormatter{writer: w}
}

// Format writes the inspection as MessagePack.
func (f *MsgpackFormatter) Format(in *dto.Inspection) error {
	enc := msgpack.NewEncoder(f.writer)
	enc.SetCustomStructTag("msgpack")
	return enc.Encode(in)
}

// DecodeMsgpack reads an inspection written by MsgpackFormatter.
func DecodeMsgpack(r io.Reader) (*dto.Inspection, error) {
	var in dto.Inspection
	if err := msgpack.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Package output renders inspection reports as table, json, yaml, msgpack
// or sarif.
package output

import (
	"fmt"
	"io"

	"github.com/reglet-dev/glimpse/internal/application/ports"
)

type constructor func(w io.Writer, opts ports.FormatterOptions) ports.OutputFormatter

// formats is ordered; the first entry is the default.
var formats = []struct {
	name string
	new  constructor
}{
	{"table", func(w io.Writer, o ports.FormatterOptions) ports.OutputFormatter {
		t := NewTableFormatter(w)
		t.EnableColor = o.Color
		return t
	}},
	{"json", func(w io.Writer, o ports.FormatterOptions) ports.OutputFormatter {
		return NewJSONFormatter(w, o.Indent)
	}},
	{"yaml", func(w io.Writer, _ ports.FormatterOptions) ports.OutputFormatter { return NewYAMLFormatter(w) }},
	{"msgpack", func(w io.Writer, _ ports.FormatterOptions) ports.OutputFormatter { return NewMsgpackFormatter(w) }},
	{"sarif", func(w io.Writer, _ ports.FormatterOptions) ports.OutputFormatter { return NewSARIFFormatter(w) }},
}

// FormatterFactory looks formatters up by name.
type FormatterFactory struct{}

func NewFormatterFactory() *FormatterFactory { return &FormatterFactory{} }

// Create returns the formatter named format writing to w.
func (f *FormatterFactory) Create(format string, w io.Writer, opts ports.FormatterOptions) (ports.OutputFormatter, error) {
	for _, entry := range formats {
		if entry.name == format {
			return entry.new(w, opts), nil
		}
	}
	return nil, fmt.Errorf("unknown format: %s (supported: %v)", format, f.SupportedFormats())
}

// SupportedFormats lists the format names in preference order.
func (f *FormatterFactory) SupportedFormats() []string {
	names := make([]string, len(formats))
	for i, entry := range formats {
		names[i] = entry.name
	}
	return names
}

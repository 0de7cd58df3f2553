// Package dto contains data transfer objects passed between the application
// layer and the output adapters.
package dto

import (
	"time"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/application/lifecycle"
)

// Inspection is everything one inspect or generate run reports.
type Inspection struct {
	Tool        string            `json:"tool" yaml:"tool" msgpack:"tool"`
	Version     string            `json:"version" yaml:"version" msgpack:"version"`
	Generated   time.Time         `json:"generated" yaml:"generated" msgpack:"generated"`
	Profiles    int               `json:"profiles" yaml:"profiles" msgpack:"profiles"`
	Units       []lifecycle.State `json:"units,omitempty" yaml:"units,omitempty" msgpack:"units,omitempty"`
	Closures    []string          `json:"closures,omitempty" yaml:"closures,omitempty" msgpack:"closures,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" msgpack:"diagnostics,omitempty"`
}

// Diagnostic is the serializable form of one report entry.
type Diagnostic struct {
	Severity string `json:"severity" yaml:"severity" msgpack:"severity"`
	Member   string `json:"member" yaml:"member" msgpack:"member"`
	Rule     string `json:"rule" yaml:"rule" msgpack:"rule"`
	Message  string `json:"message" yaml:"message" msgpack:"message"`
}

// Diagnostics converts a report. A nil report yields nil.
func Diagnostics(r *apperrors.Report) []Diagnostic {
	if r == nil {
		return nil
	}
	var out []Diagnostic
	for _, d := range r.Diagnostics() {
		out = append(out, Diagnostic{
			Severity: d.Severity.String(),
			Member:   d.Member,
			Rule:     d.Rule,
			Message:  d.Err.Error(),
		})
	}
	return out
}

// Errors counts the error diagnostics.
func (i *Inspection) Errors() int {
	n := 0
	for _, d := range i.Diagnostics {
		if d.Severity == "error" {
			n++
		}
	}
	return n
}

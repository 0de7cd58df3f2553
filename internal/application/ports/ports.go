// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture: abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"github.com/reglet-dev/glimpse/internal/application/dto"
)

// OutputFormatter formats inspection results.
type OutputFormatter interface {
	Format(inspection *dto.Inspection) error
}

// FormatterOptions tunes formatter construction.
type FormatterOptions struct {
	// Indent pretty-prints JSON.
	Indent bool
	// Color enables ANSI colour in the table format.
	Color bool
}

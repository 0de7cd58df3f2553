package apperrors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/reglet-dev/glimpse/internal/domain/values"
)

// Rule identifiers used in reports and SARIF output.
const (
	RuleConstruction = "glimpse/construction"
	RuleGeneration   = "glimpse/generation"
	RuleLifecycle    = "glimpse/lifecycle"
	RuleSystemic     = "glimpse/systemic"
	RuleOther        = "glimpse/other"
)

// Diagnostic is one entry of a Report.
type Diagnostic struct {
	Err      error
	Severity values.Severity
	Member   string
	Rule     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %v", d.Severity, d.Member, d.Err)
}

// Report collects per-member diagnostics during a pass so they can be
// surfaced once at the end. It is safe for concurrent use.
type Report struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records err against member.
func (r *Report) Add(sev values.Severity, member string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Diagnostic{Err: err, Severity: sev, Member: member, Rule: RuleOf(err)})
}

// Warn records a warning.
func (r *Report) Warn(member string, err error) { r.Add(values.SeverityWarning, member, err) }

// Error records an error.
func (r *Report) Error(member string, err error) { r.Add(values.SeverityError, member, err) }

// Merge appends every diagnostic of other.
func (r *Report) Merge(other *Report) {
	if other == nil || other == r {
		return
	}
	items := other.Diagnostics()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
}

// Diagnostics returns the entries ordered by member, then severity.
func (r *Report) Diagnostics() []Diagnostic {
	r.mu.Lock()
	out := append([]Diagnostic(nil), r.items...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Member != out[j].Member {
			return out[i].Member < out[j].Member
		}
		return out[i].Severity > out[j].Severity
	})
	return out
}

// Len returns the number of entries.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Count returns the number of entries at or above sev.
func (r *Report) Count(sev values.Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.items {
		if d.Severity.IsHigherOrEqual(sev) {
			n++
		}
	}
	return n
}

// CountOf returns the number of entries with exactly sev.
func (r *Report) CountOf(sev values.Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.items {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// First returns the first entry of at least sev in Diagnostics order.
func (r *Report) First(sev values.Severity) (Diagnostic, bool) {
	for _, d := range r.Diagnostics() {
		if d.Severity.IsHigherOrEqual(sev) {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// Log writes every entry to logger at the level matching its severity.
func (r *Report) Log(ctx context.Context, logger *slog.Logger, msg string) {
	for _, d := range r.Diagnostics() {
		logger.Log(ctx, levelOf(d.Severity), msg,
			"member", d.Member,
			"rule", d.Rule,
			"error", d.Err)
	}
}

func levelOf(sev values.Severity) slog.Level {
	switch {
	case sev.IsHigherOrEqual(values.SeverityError):
		return slog.LevelError
	case sev.IsHigherOrEqual(values.SeverityWarning):
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// HasErrors reports whether any entry has error severity.
func (r *Report) HasErrors() bool {
	return r.Count(values.SeverityError) > 0
}

// Err joins every error-severity entry, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, d := range r.Diagnostics() {
		if d.Severity == values.SeverityError {
			errs = append(errs, d.Err)
		}
	}
	return errors.Join(errs...)
}

// RuleOf classifies err into a report rule.
func RuleOf(err error) string {
	var (
		ce *ConstructionError
		ge *GenerationError
		le *LifecycleError
		se *SystemicError
	)
	switch {
	case errors.As(err, &se):
		return RuleSystemic
	case errors.As(err, &ge):
		return RuleGeneration
	case errors.As(err, &ce):
		return RuleConstruction
	case errors.As(err, &le):
		return RuleLifecycle
	}
	return RuleOther
}

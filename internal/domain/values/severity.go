package values

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic collected during profiling or generation.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// ParseSeverity parses info, warning or error.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("invalid severity: %s", s)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// SARIFLevel maps the severity onto a SARIF result level.
func (s Severity) SARIFLevel() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "note"
	}
}

// IsHigherOrEqual returns true if this severity is at least other.
func (s Severity) IsHigherOrEqual(other Severity) bool {
	return s >= other
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(data []byte) error {
	sev, err := ParseSeverity(string(data))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

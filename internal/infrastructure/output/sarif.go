package output

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/reglet-dev/glimpse/internal/application/dto"
	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
)

// SARIFFormatter formats inspection diagnostics as SARIF 2.1.0 JSON, one
// rule per error class and one result per diagnostic. Members are reported
// as logical locations.
type SARIFFormatter struct {
	writer io.Writer
}

// NewSARIFFormatter creates a new SARIF formatter.
func NewSARIFFormatter(writer io.Writer) *SARIFFormatter {
	return &SARIFFormatter{writer: writer}
}

var ruleDescriptions = map[string]string{
	apperrors.RuleConstruction: "A member could not be turned into a usable profile",
	apperrors.RuleGeneration:   "A closure could not be generated for a member",
	apperrors.RuleLifecycle:    "A registration call had no effect",
	apperrors.RuleSystemic:     "Module enumeration failed",
	apperrors.RuleOther:        "Other diagnostic",
}

// Format writes the inspection as SARIF 2.1.0 JSON.
func (f *SARIFFormatter) Format(in *dto.Inspection) error {
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("glimpse", "https://github.com/reglet-dev/glimpse")
	version := in.Version
	run.Tool.Driver.Version = &version

	seen := make(map[string]bool)
	for _, d := range in.Diagnostics {
		if !seen[d.Rule] {
			seen[d.Rule] = true
			run.Tool.Driver.AddRule(newRule(d.Rule))
		}
		run.AddResult(newResult(d))
	}

	invocation := sarif.NewInvocation()
	ok := in.Errors() == 0
	invocation.ExecutionSuccessful = &ok
	ts := in.Generated.UTC().Format("2006-01-02T15:04:05.000Z")
	invocation.EndTimeUtc = &ts
	run.AddInvocation(invocation)

	props := sarif.NewPropertyBag()
	props.Add("profiles", in.Profiles)
	props.Add("units", len(in.Units))
	props.Add("closures", len(in.Closures))
	run.WithProperties(props)

	report.AddRun(run)
	if err := report.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}
	_, err := f.writer.Write([]byte("\n"))
	return err
}

func newRule(id string) *sarif.ReportingDescriptor {
	desc, ok := ruleDescriptions[id]
	if !ok {
		desc = ruleDescriptions[apperrors.RuleOther]
	}
	rule := sarif.NewReportingDescriptor().WithID(id).WithName(id)
	rule.WithShortDescription(&sarif.MultiformatMessageString{Text: &desc})
	return rule
}

func newResult(d dto.Diagnostic) *sarif.Result {
	result := sarif.NewRuleResult(d.Rule)
	result.Level = levelOf(d.Severity)
	result.Message = sarif.NewTextMessage(d.Message)

	logical := sarif.NewLogicalLocation().
		WithFullyQualifiedName(d.Member).
		WithKind("member")
	loc := sarif.NewLocation().WithLogicalLocations([]*sarif.LogicalLocation{logical})
	result.Locations = []*sarif.Location{loc}
	return result
}

func levelOf(severity string) string {
	switch severity {
	case "error":
		return "error"
	case "warning":
		return "warning"
	}
	return "note"
}

package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/internal/application/dto"
	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/application/lifecycle"
	"github.com/reglet-dev/glimpse/internal/application/ports"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

func createInspection() *dto.Inspection {
	return &dto.Inspection{
		Tool:      "glimpse",
		Version:   "1.2.3",
		Generated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Profiles:  2,
		Units: []lifecycle.State{
			{
				ID:      values.MustParseUnitID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
				Member:  "example.com/game.Hero.Mana",
				Kind:    "field",
				Label:   "Mana",
				Segment: "auto",
				Text:    "42",
				Visible: true,
				Enabled: true,
			},
			{
				ID:      values.MustParseUnitID("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
				Member:  "example.com/game.Clock.Ticks",
				Kind:    "field",
				Label:   "Ticks",
				Segment: "tick",
				Text:    "3",
				Static:  true,
				Enabled: true,
			},
		},
		Closures: []string{"Field[game.Hero, int]"},
		Diagnostics: []dto.Diagnostic{
			{Severity: "warning", Member: "example.com/game.Hero.Pos", Rule: apperrors.RuleGeneration, Message: "cannot name type"},
			{Severity: "error", Member: "example.com/game.Hero.Bad", Rule: apperrors.RuleConstruction, Message: "invalid struct tag"},
			{Severity: "info", Member: "example.com/game.Hero", Rule: apperrors.RuleLifecycle, Message: "already registered"},
		},
	}
}

func Test_FormatterFactory_Create(t *testing.T) {
	t.Parallel()
	f := NewFormatterFactory()
	for _, format := range f.SupportedFormats() {
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			out, err := f.Create(format, &buf, ports.FormatterOptions{})
			require.NoError(t, err)
			require.NoError(t, out.Format(createInspection()))
			assert.NotZero(t, buf.Len())
		})
	}

	_, err := f.Create("xml", &bytes.Buffer{}, ports.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format: xml")
}

func Test_JSONFormatter_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf, true).Format(createInspection()))

	assert.Contains(t, buf.String(), "\n  \"tool\": \"glimpse\"")

	var got dto.Inspection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Units, 2)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", got.Units[0].ID.String())
	assert.Equal(t, 1, got.Errors())
}

func Test_YAMLFormatter_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(&buf).Format(createInspection()))

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "glimpse", raw["tool"])
	assert.Len(t, raw["diagnostics"], 3)
	assert.Contains(t, buf.String(), "member: example.com/game.Hero.Mana")
}

func Test_MsgpackFormatter_Decode(t *testing.T) {
	t.Parallel()
	in := createInspection()
	var buf bytes.Buffer
	require.NoError(t, NewMsgpackFormatter(&buf).Format(in))

	got, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.Tool, got.Tool)
	assert.Equal(t, in.Profiles, got.Profiles)
	assert.True(t, in.Generated.Equal(got.Generated))
	require.Len(t, got.Units, 2)
	assert.Equal(t, in.Units[1].ID, got.Units[1].ID)
	assert.True(t, got.Units[1].Static)
	assert.Equal(t, in.Diagnostics, got.Diagnostics)
}

func Test_TableFormatter_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)
	f.EnableColor = false
	require.NoError(t, f.Format(createInspection()))

	out := buf.String()
	assert.Contains(t, out, "glimpse 1.2.3")
	assert.Contains(t, out, "Profiles: 2")
	assert.Contains(t, out, "MEMBER")
	assert.Contains(t, out, "example.com/game.Hero.Mana")
	assert.Contains(t, out, "hidden,static")
	assert.Contains(t, out, "Field[game.Hero, int]")
	assert.Contains(t, out, "3 diagnostic(s), 1 error(s)")
	assert.NotContains(t, out, "\033[")
}

func Test_TableFormatter_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)
	f.EnableColor = false
	require.NoError(t, f.Format(&dto.Inspection{Tool: "glimpse", Version: "dev"}))

	assert.Contains(t, buf.String(), "No diagnostics.")
	assert.NotContains(t, buf.String(), "Units:")
}

func Test_TableFormatter_Color(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(createInspection()))
	assert.Contains(t, buf.String(), colorRed+"error"+colorReset)
}

func Test_SARIFFormatter_ToolMetadata(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewSARIFFormatter(&buf).Format(createInspection()))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, "glimpse", *run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", *run.Tool.Driver.Version)
	require.Len(t, run.Tool.Driver.Rules, 3)

	require.Len(t, run.Invocations, 1)
	require.NotNil(t, run.Invocations[0].ExecutionSuccessful)
	assert.False(t, *run.Invocations[0].ExecutionSuccessful)
}

func Test_SARIFFormatter_Levels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, NewSARIFFormatter(&buf).Format(createInspection()))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	results := report.Runs[0].Results
	require.Len(t, results, 3)

	levels := make([]string, 0, len(results))
	for _, r := range results {
		levels = append(levels, r.Level)
	}
	assert.Equal(t, []string{"warning", "error", "note"}, levels)

	var raw struct {
		Runs []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Locations []struct {
					LogicalLocations []struct {
						FullyQualifiedName string `json:"fullyQualifiedName"`
					} `json:"logicalLocations"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw.Runs, 1)
	rules := raw.Runs[0].Tool.Driver.Rules
	require.Len(t, rules, 3)
	assert.Equal(t, apperrors.RuleGeneration, rules[0].ID)

	bad := raw.Runs[0].Results[1]
	assert.Equal(t, apperrors.RuleConstruction, bad.RuleID)
	require.Len(t, bad.Locations, 1)
	require.Len(t, bad.Locations[0].LogicalLocations, 1)
	assert.Equal(t, "example.com/game.Hero.Bad", bad.Locations[0].LogicalLocations[0].FullyQualifiedName)
}

func Test_SARIFFormatter_Clean(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	in := createInspection()
	in.Diagnostics = nil
	require.NoError(t, NewSARIFFormatter(&buf).Format(in))

	report, err := sarif.FromBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, report.Runs[0].Results)
	assert.True(t, *report.Runs[0].Invocations[0].ExecutionSuccessful)
}

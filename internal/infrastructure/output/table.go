package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/reglet-dev/glimpse/internal/application/dto"
	"github.com/reglet-dev/glimpse/internal/application/lifecycle"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// TableFormatter formats inspections as human-readable tables.
type TableFormatter struct {
	writer      io.Writer
	EnableColor bool
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

// colorize returns the string wrapped in ANSI color codes if enabled.
func (f *TableFormatter) colorize(text, code string) string {
	if !f.EnableColor {
		return text
	}
	return code + text + colorReset
}

// Format writes the inspection as tables.
//
//nolint:errcheck // Table formatting errors are non-critical (best-effort terminal output)
func (f *TableFormatter) Format(in *dto.Inspection) error {
	fmt.Fprintln(f.writer, f.colorize(strings.Repeat("─", 80), colorGray))
	fmt.Fprintf(f.writer, "%s %s\n", f.colorize(in.Tool, colorBold), in.Version)
	fmt.Fprintf(f.writer, "Generated: %s\n", in.Generated.Format(time.RFC3339))
	fmt.Fprintf(f.writer, "Profiles: %d\n", in.Profiles)
	fmt.Fprintln(f.writer)

	if len(in.Units) > 0 {
		fmt.Fprintln(f.writer, f.colorize("Units:", colorBold))
		f.render([]string{"MEMBER", "LABEL", "VALUE", "SEGMENT", "STATE"}, unitRows(in.Units))
		fmt.Fprintln(f.writer)
	}

	if len(in.Closures) > 0 {
		fmt.Fprintln(f.writer, f.colorize("Closures:", colorBold))
		rows := make([][]string, 0, len(in.Closures))
		for _, c := range in.Closures {
			rows = append(rows, []string{c})
		}
		f.render([]string{"KEY"}, rows)
		fmt.Fprintln(f.writer)
	}

	if len(in.Diagnostics) == 0 {
		fmt.Fprintln(f.writer, "No diagnostics.")
		return nil
	}
	fmt.Fprintln(f.writer, f.colorize("Diagnostics:", colorBold))
	rows := make([][]string, 0, len(in.Diagnostics))
	for _, d := range in.Diagnostics {
		rows = append(rows, []string{f.severity(d.Severity), d.Member, d.Rule, d.Message})
	}
	f.render([]string{"SEVERITY", "MEMBER", "RULE", "MESSAGE"}, rows)
	fmt.Fprintf(f.writer, "\n%d diagnostic(s), %d error(s)\n", len(in.Diagnostics), in.Errors())
	return nil
}

func (f *TableFormatter) render(header []string, rows [][]string) {
	table := tablewriter.NewWriter(f.writer)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()
}

func (f *TableFormatter) severity(s string) string {
	switch s {
	case "error":
		return f.colorize(s, colorRed)
	case "warning":
		return f.colorize(s, colorYellow)
	}
	return s
}

func unitRows(units []lifecycle.State) [][]string {
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		var state []string
		if !u.Enabled {
			state = append(state, "disabled")
		}
		if !u.Visible {
			state = append(state, "hidden")
		}
		if u.Static {
			state = append(state, "static")
		}
		text := u.Text
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		rows = append(rows, []string{u.Member, u.Label, text, u.Segment, strings.Join(state, ",")})
	}
	return rows
}

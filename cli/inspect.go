package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/glimpse/internal/application/dto"
	"github.com/reglet-dev/glimpse/internal/application/ports"
	"github.com/reglet-dev/glimpse/internal/infrastructure/output"
	"github.com/reglet-dev/glimpse/marker"
)

func (a *app) newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Build every profile and report units and diagnostics",
		Long: `Inspect builds the profiles of every registered type, creates the static
units and the units of the sample targets, runs the requested update passes
and prints the unit states together with the build diagnostics.`,
		Example: `  glimpse inspect
  glimpse inspect --ticks 3 --format json
  glimpse inspect --format sarif --out diagnostics.sarif`,
		Args: cobra.NoArgs,
		RunE: a.runInspect,
	}

	cmd.Flags().StringP("format", "f", "table", "output format: table, json, yaml, msgpack, sarif")
	cmd.Flags().String("out", "", "write to a file instead of stdout")
	cmd.Flags().Bool("color", true, "colour table output")
	cmd.Flags().Int("ticks", 0, "tick passes to run before reporting")
	cmd.Flags().Bool("fail-on-error", false, "exit non-zero when the build reports errors")
	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := a.load(cmd, map[string]string{
		"output.format": "format",
		"output.color":  "color",
	})
	if err != nil {
		return err
	}
	// Passes are driven explicitly below.
	cfg.Update.TickInterval = 0
	cfg.Update.FrameInterval = 0

	mon, err := a.monitor(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := mon.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := mon.Stop(ctx); err == nil {
			err = stopErr
		}
	}()
	if err := mon.Wait(ctx); err != nil {
		return err
	}

	if a.targets != nil {
		for _, t := range a.targets() {
			if err := mon.RegisterTarget(ctx, t); err != nil {
				return err
			}
		}
	}

	ticks, _ := cmd.Flags().GetInt("ticks")
	for range ticks {
		if _, err := mon.Update(ctx, marker.SegmentTick); err != nil {
			return err
		}
	}
	if _, err := mon.Update(ctx, marker.SegmentManual); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path) //nolint:gosec // user-chosen output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	in := mon.Inspect(ctx)
	if err := a.format(w, cfg.Output.Format, cfg.Output.Color, in); err != nil {
		return err
	}

	if fail, _ := cmd.Flags().GetBool("fail-on-error"); fail && in.Errors() > 0 {
		return fmt.Errorf("%d build error(s)", in.Errors())
	}
	return nil
}

func (a *app) format(w io.Writer, format string, color bool, in *dto.Inspection) error {
	formatter, err := output.NewFormatterFactory().Create(format, w, ports.FormatterOptions{
		Indent: true,
		Color:  color,
	})
	if err != nil {
		return err
	}
	return formatter.Format(in)
}

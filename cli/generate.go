package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/glimpse/internal/application/closuregen"
	"github.com/reglet-dev/glimpse/internal/application/dto"
	"github.com/reglet-dev/glimpse/internal/version"
)

func (a *app) newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate closure instantiations for every monitored member",
		Long: `Generate writes a Go file that instantiates the typed access closures of
every monitored member, so the fast access paths never fall back to
reflection. Members whose types cannot be named from the output package are
reported and skipped, or abort the run with --strict.`,
		Example: `  glimpse generate --output internal/game/glimpse_closures.go --package game
  glimpse generate --strict --format sarif > closures.sarif`,
		Args: cobra.NoArgs,
		RunE: a.runGenerate,
	}

	cmd.Flags().StringP("output", "o", "", "path of the generated file")
	cmd.Flags().String("package", "", "package clause of the generated file")
	cmd.Flags().String("pkg-path", "", "import path of the generated file's package")
	cmd.Flags().Bool("strict", false, "fail on the first member that cannot be generated")
	cmd.Flags().Bool("force", false, "overwrite files written by a newer generator")
	cmd.Flags().Bool("dry-run", false, "print the source instead of writing it")
	cmd.Flags().String("format", "table", "report format: table, json, yaml, msgpack, sarif")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := a.load(cmd, map[string]string{
		"generate.output":   "output",
		"generate.package":  "package",
		"generate.pkg_path": "pkg-path",
		"generate.strict":   "strict",
		"generate.force":    "force",
	})
	if err != nil {
		return err
	}
	mon, err := a.monitor(cfg)
	if err != nil {
		return err
	}

	gen := closuregen.New(mon.Builder(), closuregen.Config{
		Output:  cfg.Generate.Output,
		Package: cfg.Generate.Package,
		PkgPath: cfg.Generate.PkgPath,
		Strict:  cfg.Generate.Strict,
		Force:   cfg.Generate.Force,
	}, closuregen.WithLogger(a.logger))

	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	var res *closuregen.Result
	if dryRun {
		res, err = gen.Render(ctx)
	} else {
		res, err = gen.Generate(ctx)
	}
	if err != nil {
		return err
	}

	if dryRun {
		_, err := cmd.OutOrStdout().Write(res.Source)
		return err
	}

	a.logger.Info("closures generated",
		"file", cfg.Generate.Output,
		"closures", len(res.Keys),
		"written", res.Written)

	format, _ := cmd.Flags().GetString("format")
	if err := a.format(cmd.OutOrStdout(), format, cfg.Output.Color, &dto.Inspection{
		Tool:        "glimpse",
		Version:     version.Get().String(),
		Generated:   time.Now().UTC(),
		Closures:    res.Keys,
		Diagnostics: dto.Diagnostics(res.Report),
	}); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	return nil
}

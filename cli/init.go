package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/glimpse/internal/infrastructure/config"
	"github.com/reglet-dev/glimpse/internal/infrastructure/output"
)

type initOptions struct {
	Path          string
	Output        string
	Package       string
	Tick          string
	Format        string
	Redact        bool
	Force         bool
	NoInteractive bool
}

func (a *app) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter glimpse config file",
		Example: `  glimpse init
  glimpse init --no-interactive --path .glimpse.yaml --tick 500ms`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	d := config.DefaultConfig()
	cmd.Flags().String("path", defaultConfigPath(), "config file to write")
	cmd.Flags().String("generated", d.Generate.Output, "generated closures file")
	cmd.Flags().String("package", d.Generate.Package, "package of the generated file")
	cmd.Flags().String("tick", d.Update.TickInterval.String(), "tick update interval")
	cmd.Flags().String("format", d.Output.Format, "default inspect format")
	cmd.Flags().Bool("redact", false, "scrub secrets from displayed values")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	cmd.Flags().Bool("no-interactive", false, "disable interactive prompts")
	return cmd
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".glimpse.yaml"
	}
	return filepath.Join(home, ".glimpse.yaml")
}

func runInit(cmd *cobra.Command, _ []string) error {
	opts := initOptions{}
	opts.Path, _ = cmd.Flags().GetString("path")
	opts.Output, _ = cmd.Flags().GetString("generated")
	opts.Package, _ = cmd.Flags().GetString("package")
	opts.Tick, _ = cmd.Flags().GetString("tick")
	opts.Format, _ = cmd.Flags().GetString("format")
	opts.Redact, _ = cmd.Flags().GetBool("redact")
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.NoInteractive, _ = cmd.Flags().GetBool("no-interactive")

	if !opts.NoInteractive {
		if err := promptInit(&opts); err != nil {
			return err
		}
	}

	cfg, err := initConfigFrom(opts)
	if err != nil {
		return err
	}

	if _, err := os.Stat(opts.Path); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.Path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(opts.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.Path)
	return nil
}

func promptInit(opts *initOptions) error {
	formats := output.NewFormatterFactory().SupportedFormats()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Config file").
				Value(&opts.Path),
			huh.NewInput().
				Title("Generated closures file").
				Value(&opts.Output),
			huh.NewInput().
				Title("Package of the generated file").
				Value(&opts.Package),
			huh.NewInput().
				Title("Tick update interval").
				Value(&opts.Tick).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Default inspect format").
				Options(huh.NewOptions(formats...)...).
				Value(&opts.Format),
			huh.NewConfirm().
				Title("Scrub secrets from displayed values?").
				Value(&opts.Redact),
		),
	).Run()
}

func initConfigFrom(opts initOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()

	tick, err := time.ParseDuration(opts.Tick)
	if err != nil {
		return nil, fmt.Errorf("invalid tick interval: %w", err)
	}
	cfg.Update.TickInterval = tick
	cfg.Generate.Output = opts.Output
	cfg.Generate.Package = opts.Package
	cfg.Redaction.Enabled = opts.Redact

	if formats := output.NewFormatterFactory().SupportedFormats(); !slices.Contains(formats, opts.Format) {
		return nil, fmt.Errorf("unknown format: %s (supported: %v)", opts.Format, formats)
	}
	cfg.Output.Format = opts.Format

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Package cli builds the glimpse command line around an application's type
// set. Applications embed it in their own binary:
//
//	func main() {
//		set := glimpse.NewTypeSet()
//		_ = glimpse.Register[game.Player](set)
//		os.Exit(cli.Execute(set))
//	}
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/glimpse"
	"github.com/reglet-dev/glimpse/internal/infrastructure/config"
	"github.com/reglet-dev/glimpse/internal/infrastructure/redaction"
)

// Option configures the command tree.
type Option func(*app)

// WithTargets supplies sample targets that inspect registers before
// reporting.
func WithTargets(fn func() []any) Option {
	return func(a *app) { a.targets = fn }
}

// WithMonitorOptions passes options to every monitor the commands create.
func WithMonitorOptions(opts ...glimpse.Option) Option {
	return func(a *app) { a.monitorOpts = append(a.monitorOpts, opts...) }
}

type app struct {
	set         *glimpse.TypeSet
	targets     func() []any
	monitorOpts []glimpse.Option

	v       *viper.Viper
	cfgFile string
	verbose bool
	logger  *slog.Logger
}

// NewRootCommand creates the glimpse command tree over set.
func NewRootCommand(set *glimpse.TypeSet, opts ...Option) *cobra.Command {
	a := &app{set: set, v: viper.New(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	config.SetDefaults(a.v)
	config.BindEnv(a.v)

	root := &cobra.Command{
		Use:   "glimpse",
		Short: "Runtime member monitoring for Go types",
		Long: `glimpse discovers the monitored members of registered types, builds
cached access paths for them and reports their live values.

It can also pre-generate the closure instantiations that let the fast
access paths work without reflection.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			return a.setupLogging(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.glimpse.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		a.newGenerateCommand(),
		a.newInspectCommand(),
		a.newInitCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(set *glimpse.TypeSet, opts ...Option) int {
	if err := NewRootCommand(set, opts...).Execute(); err != nil {
		return 1
	}
	return 0
}

// initConfig reads the config file. A missing default file is fine; a
// missing explicit one is not.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".glimpse")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
		return nil
	}
	slog.Debug("using config file", "file", a.v.ConfigFileUsed())
	return nil
}

// setupLogging installs a text handler on w, scrubbing secrets when
// redaction is enabled.
func (a *app) setupLogging(w io.Writer) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if cfg.Redaction.Enabled {
		r, err := redaction.New(cfg.Redaction.Config, nil)
		if err != nil {
			return err
		}
		w = redaction.NewWriter(w, r)
	}

	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// load binds the command's flags to config keys and decodes the result.
func (a *app) load(cmd *cobra.Command, flags map[string]string) (*config.Config, error) {
	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return config.Load(a.v)
}

func (a *app) monitor(cfg *config.Config) (*glimpse.Monitor, error) {
	opts := append([]glimpse.Option{
		glimpse.WithConfig(cfg),
		glimpse.WithLogger(a.logger),
	}, a.monitorOpts...)
	return glimpse.New(a.set, opts...)
}

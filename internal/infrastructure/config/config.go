// Package config loads glimpse configuration through viper and applies YAML
// marker overlays to a type set.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/accessor"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
	"github.com/reglet-dev/glimpse/internal/infrastructure/redaction"
)

// EnvPrefix prefixes environment overrides, e.g. GLIMPSE_UPDATE_TICK_INTERVAL.
const EnvPrefix = "GLIMPSE"

// Config is the full glimpse configuration.
type Config struct {
	Scan      ScanConfig      `mapstructure:"scan" yaml:"scan"`
	Accessor  AccessorConfig  `mapstructure:"accessor" yaml:"accessor"`
	Update    UpdateConfig    `mapstructure:"update" yaml:"update"`
	Redaction RedactionConfig `mapstructure:"redaction" yaml:"redaction"`
	Generate  GenerateConfig  `mapstructure:"generate" yaml:"generate"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	// Overlays are YAML files of extra member declarations.
	Overlays []string `mapstructure:"overlays" yaml:"overlays,omitempty"`
}

// ScanConfig filters and bounds module scanning.
type ScanConfig struct {
	Concurrency    int      `mapstructure:"concurrency" yaml:"concurrency"`
	BannedPrefixes []string `mapstructure:"banned_prefixes" yaml:"banned_prefixes"`
	EditorSuffixes []string `mapstructure:"editor_suffixes" yaml:"editor_suffixes"`
	// Strict fails the build on the first member that cannot be constructed.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// AccessorConfig selects the accessor strategy.
type AccessorConfig struct {
	// RequireClosures fails members without a pre-instantiated closure.
	RequireClosures bool `mapstructure:"require_closures" yaml:"require_closures"`
	// ForceReflect skips closures entirely.
	ForceReflect bool `mapstructure:"force_reflect" yaml:"force_reflect"`
}

// UpdateConfig drives the tick loop and the main-context queue.
type UpdateConfig struct {
	// TickInterval is the period of tick-segment passes; zero disables the loop.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	// FrameInterval is the period of frame-segment passes; zero disables it.
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	QueueSize     int           `mapstructure:"queue_size" yaml:"queue_size"`
}

// RedactionConfig configures secret scrubbing of displayed values.
type RedactionConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// All scrubs every string member, not only those marked redact.
	All bool `mapstructure:"all" yaml:"all"`

	redaction.Config `mapstructure:",squash" yaml:",inline"`
}

// GenerateConfig configures the closure generator.
type GenerateConfig struct {
	Output  string `mapstructure:"output" yaml:"output"`
	Package string `mapstructure:"package" yaml:"package"`
	PkgPath string `mapstructure:"pkg_path" yaml:"pkg_path,omitempty"`
	Strict  bool   `mapstructure:"strict" yaml:"strict"`
	Force   bool   `mapstructure:"force" yaml:"force"`
}

// OutputConfig is the default inspect format.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  bool   `mapstructure:"color" yaml:"color"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	scan := profile.DefaultScanOptions()
	return &Config{
		Scan: ScanConfig{
			Concurrency:    profile.DefaultConcurrency,
			BannedPrefixes: scan.BannedPrefixes,
			EditorSuffixes: scan.EditorSuffixes,
		},
		Update: UpdateConfig{
			TickInterval: time.Second,
			QueueSize:    64,
		},
		Generate: GenerateConfig{
			Output:  "glimpse_closures.go",
			Package: "main",
		},
		Output: OutputConfig{
			Format: "table",
			Color:  true,
		},
	}
}

// SetDefaults registers the defaults on v so that environment variables
// bind to every key.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)
	v.SetDefault("scan.banned_prefixes", d.Scan.BannedPrefixes)
	v.SetDefault("scan.editor_suffixes", d.Scan.EditorSuffixes)
	v.SetDefault("scan.strict", false)
	v.SetDefault("accessor.require_closures", false)
	v.SetDefault("accessor.force_reflect", false)
	v.SetDefault("update.tick_interval", d.Update.TickInterval)
	v.SetDefault("update.frame_interval", d.Update.FrameInterval)
	v.SetDefault("update.queue_size", d.Update.QueueSize)
	v.SetDefault("redaction.enabled", false)
	v.SetDefault("redaction.all", false)
	v.SetDefault("redaction.patterns", []string{})
	v.SetDefault("redaction.hash_mode", false)
	v.SetDefault("redaction.salt", "")
	v.SetDefault("redaction.disable_gitleaks", false)
	v.SetDefault("generate.output", d.Generate.Output)
	v.SetDefault("generate.package", d.Generate.Package)
	v.SetDefault("generate.pkg_path", "")
	v.SetDefault("generate.strict", false)
	v.SetDefault("generate.force", false)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("overlays", []string{})
}

// BindEnv makes GLIMPSE_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError("config", "cannot decode", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and combinations.
func (c *Config) Validate() error {
	switch {
	case c.Scan.Concurrency < 0:
		return apperrors.NewConfigurationError("scan.concurrency", "must not be negative", nil)
	case c.Update.TickInterval < 0:
		return apperrors.NewConfigurationError("update.tick_interval", "must not be negative", nil)
	case c.Update.FrameInterval < 0:
		return apperrors.NewConfigurationError("update.frame_interval", "must not be negative", nil)
	case c.Update.QueueSize < 0:
		return apperrors.NewConfigurationError("update.queue_size", "must not be negative", nil)
	case c.Accessor.RequireClosures && c.Accessor.ForceReflect:
		return apperrors.NewConfigurationError("accessor", "require_closures and force_reflect are exclusive", nil)
	}
	return nil
}

// ScanOptions converts the scan section.
func (c *Config) ScanOptions() profile.ScanOptions {
	return profile.ScanOptions{
		BannedPrefixes: c.Scan.BannedPrefixes,
		EditorSuffixes: c.Scan.EditorSuffixes,
	}
}

// AccessorOptions converts the accessor section.
func (c *Config) AccessorOptions() accessor.Options {
	return accessor.Options{
		RequireClosures: c.Accessor.RequireClosures,
		ForceReflect:    c.Accessor.ForceReflect,
	}
}

// String summarizes the config for debug logs.
func (c *Config) String() string {
	return fmt.Sprintf("scan=%d tick=%s frame=%s redaction=%t overlays=%d",
		c.Scan.Concurrency, c.Update.TickInterval, c.Update.FrameInterval, c.Redaction.Enabled, len(c.Overlays))
}

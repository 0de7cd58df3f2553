package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/profile"
)

func newViper(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if doc != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	}
	return v
}

func Test_Load_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, profile.DefaultConcurrency, cfg.Scan.Concurrency)
	assert.Equal(t, "glimpse_closures.go", cfg.Generate.Output)
	assert.False(t, cfg.Redaction.Enabled)
	assert.Empty(t, cfg.Overlays)
	assert.Equal(t, profile.DefaultScanOptions(), cfg.ScanOptions())
	assert.Equal(t, time.Second, cfg.Update.TickInterval)
	assert.Equal(t, "table", cfg.Output.Format)
}

func Test_Load_File(t *testing.T) {
	cfg, err := Load(newViper(t, `
scan:
  concurrency: 2
accessor:
  require_closures: true
update:
  tick_interval: 250ms
redaction:
  enabled: true
  all: true
  hash_mode: true
  salt: pepper
  patterns: ["INT-[0-9]+"]
generate:
  output: gen/closures.go
  strict: true
overlays: [a.yaml, b.yaml]
`))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.True(t, cfg.AccessorOptions().RequireClosures)
	assert.Equal(t, 250*time.Millisecond, cfg.Update.TickInterval)
	assert.True(t, cfg.Redaction.Enabled)
	assert.True(t, cfg.Redaction.All)
	assert.True(t, cfg.Redaction.HashMode)
	assert.Equal(t, "pepper", cfg.Redaction.Salt)
	assert.Equal(t, []string{"INT-[0-9]+"}, cfg.Redaction.Patterns)
	assert.Equal(t, "gen/closures.go", cfg.Generate.Output)
	assert.Equal(t, "main", cfg.Generate.Package)
	assert.True(t, cfg.Generate.Strict)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Overlays)
}

func Test_Load_Env(t *testing.T) {
	t.Setenv("GLIMPSE_UPDATE_TICK_INTERVAL", "5s")
	t.Setenv("GLIMPSE_GENERATE_PACKAGE", "game")
	t.Setenv("GLIMPSE_SCAN_STRICT", "true")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Update.TickInterval)
	assert.Equal(t, "game", cfg.Generate.Package)
	assert.True(t, cfg.Scan.Strict)
}

func Test_Load_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		aspect string
	}{
		{name: "negative concurrency", doc: "scan:\n  concurrency: -1\n", aspect: "scan.concurrency"},
		{name: "negative tick", doc: "update:\n  tick_interval: -1s\n", aspect: "update.tick_interval"},
		{name: "exclusive accessor modes", doc: "accessor:\n  require_closures: true\n  force_reflect: true\n", aspect: "accessor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.doc))
			require.Error(t, err)

			var cerr *apperrors.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.aspect, cerr.Aspect)
		})
	}
}

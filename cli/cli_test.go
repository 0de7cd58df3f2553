package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reglet-dev/glimpse"
	"github.com/reglet-dev/glimpse/internal/application/dto"
	"github.com/reglet-dev/glimpse/internal/infrastructure/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type Gauge struct {
	Level int    `glimpse:"Level,tags:core"`
	Note  string `glimpse:"Note,segment:manual"`
}

func newSet(t *testing.T) *glimpse.TypeSet {
	t.Helper()
	set := glimpse.NewTypeSet()
	require.NoError(t, glimpse.Register[Gauge](set))
	return set
}

func execute(t *testing.T, opts []Option, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCommand(newSet(t), opts...)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func Test_Version(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "glimpse version "))
}

func Test_Inspect_JSON(t *testing.T) {
	targets := WithTargets(func() []any {
		return []any{&Gauge{Level: 7, Note: "ok"}}
	})
	out, err := execute(t, []Option{targets}, "inspect", "--format", "json", "--ticks", "1")
	require.NoError(t, err)

	var in dto.Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, "glimpse", in.Tool)
	assert.Equal(t, 2, in.Profiles)
	require.Len(t, in.Units, 2)

	texts := map[string]string{}
	for _, u := range in.Units {
		texts[u.Label] = u.Text
	}
	assert.Equal(t, map[string]string{"Level": "7", "Note": "ok"}, texts)
	assert.Zero(t, in.Errors())
}

func Test_Inspect_OutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	out, err := execute(t, nil, "inspect", "--format", "yaml", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool: glimpse")
}

func Test_Inspect_UnknownFormat(t *testing.T) {
	_, err := execute(t, nil, "inspect", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func Test_Generate_DryRun(t *testing.T) {
	out, err := execute(t, nil, "generate", "--dry-run",
		"--package", "cli",
		"--pkg-path", "github.com/reglet-dev/glimpse/cli")
	require.NoError(t, err)
	assert.Contains(t, out, "// Code generated by glimpse closuregen")
	assert.Contains(t, out, "package cli")
	assert.Contains(t, out, "aot.Keep(")
}

func Test_Generate_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "closures.go")
	out, err := execute(t, nil, "generate",
		"--output", path,
		"--package", "cli",
		"--pkg-path", "github.com/reglet-dev/glimpse/cli",
		"--format", "json")
	require.NoError(t, err)

	var in dto.Inspection
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.NotEmpty(t, in.Closures)

	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(src), "DO NOT EDIT")
}

func Test_Init_NoInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".glimpse.yaml")
	args := []string{"init", "--no-interactive", "--path", path, "--tick", "250ms", "--redact", "--format", "json"}

	out, err := execute(t, nil, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Update.TickInterval)
	assert.True(t, cfg.Redaction.Enabled)
	assert.Equal(t, "json", cfg.Output.Format)

	_, err = execute(t, nil, args...)
	require.Error(t, err, "existing file is not overwritten")
	_, err = execute(t, nil, append(args, "--force")...)
	require.NoError(t, err)
}

func Test_Init_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".glimpse.yaml")
	_, err := execute(t, nil, "init", "--no-interactive", "--path", path, "--tick", "soon")
	require.Error(t, err)
	_, err = execute(t, nil, "init", "--no-interactive", "--path", path, "--format", "xml")
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func Test_ExplicitConfigMissing(t *testing.T) {
	_, err := execute(t, nil, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	require.Error(t, err)
}

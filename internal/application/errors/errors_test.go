package apperrors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/glimpse/internal/domain/values"
)

func Test_ConstructionError(t *testing.T) {
	cause := errors.New("boom")
	err := NewConstructionError("pkg.T.F", "accessor", "no getter", cause)

	assert.Equal(t, "cannot build accessor for pkg.T.F: no getter: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot build processor for x: y", NewConstructionError("x", "processor", "y", nil).Error())
}

func Test_SystemicError(t *testing.T) {
	err := fmt.Errorf("scan: %w", NewSystemicError("enumerate modules", errors.New("io")))
	assert.True(t, IsSystemic(err))
	assert.False(t, IsSystemic(errors.New("other")))
}

func Test_RuleOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewConstructionError("m", "accessor", "x", nil), RuleConstruction},
		{NewGenerationError("m", "T", errors.New("x")), RuleGeneration},
		{NewLifecycleError("register", "T", "already registered"), RuleLifecycle},
		{NewSystemicError("scan", errors.New("x")), RuleSystemic},
		{errors.New("plain"), RuleOther},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RuleOf(tt.err))
		})
	}
}

func Test_Report(t *testing.T) {
	r := NewReport()
	r.Warn("b", NewConstructionError("b", "processor", "not found", nil))
	r.Error("a", NewGenerationError("a", "T", errors.New("bad")))
	r.Add(values.SeverityError, "c", nil)

	require.Equal(t, 2, r.Len())
	d := r.Diagnostics()
	assert.Equal(t, "a", d[0].Member)
	assert.Equal(t, RuleGeneration, d[0].Rule)
	assert.Equal(t, "b", d[1].Member)
	assert.True(t, r.HasErrors())
	assert.Equal(t, 2, r.Count(values.SeverityWarning))
	assert.Equal(t, 1, r.CountOf(values.SeverityWarning))
	assert.Equal(t, 1, r.CountOf(values.SeverityError))
	assert.ErrorContains(t, r.Err(), "bad")

	first, ok := r.First(values.SeverityError)
	require.True(t, ok)
	assert.Equal(t, "a", first.Member)
	_, ok = NewReport().First(values.SeverityWarning)
	assert.False(t, ok)
}

func Test_Report_Log(t *testing.T) {
	t.Parallel()
	r := NewReport()
	r.Error("a", NewConstructionError("a", "accessor", "missing", nil))
	r.Warn("b", NewConstructionError("b", "processor", "not found", nil))
	r.Add(values.SeverityInfo, "c", errors.New("noted"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r.Log(context.Background(), logger, "profile diagnostic")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "level=ERROR")
	assert.Contains(t, lines[0], "member=a")
	assert.Contains(t, lines[1], "level=WARN")
	assert.Contains(t, lines[1], "rule="+RuleConstruction)
	assert.Contains(t, lines[2], "level=INFO")
}

func Test_Report_Merge(t *testing.T) {
	a, b := NewReport(), NewReport()
	b.Warn("x", errors.New("w"))

	a.Merge(b)
	a.Merge(a)
	a.Merge(nil)

	assert.Equal(t, 1, a.Len())
	assert.NoError(t, a.Err())
}

func Test_Report_Concurrent(t *testing.T) {
	r := NewReport()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Warn(fmt.Sprint(i), errors.New("w"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}

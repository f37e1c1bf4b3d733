package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/devshell/internal/adapters/logger"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer with colors disabled.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name       string
		log        func(lg *logger.Logger)
		goldenName string
	}{
		{
			name:       "info",
			log:        func(lg *logger.Logger) { lg.Info("resolved 3 packages for x86_64-linux") },
			goldenName: "info_basic",
		},
		{
			name:       "multiline info",
			log:        func(lg *logger.Logger) { lg.Info("line1\nline2") },
			goldenName: "info_multiline",
		},
		{
			name:       "warn",
			log:        func(lg *logger.Logger) { lg.Warn("constraints ignored for packages not in the environment: zig") },
			goldenName: "warn_basic",
		},
		{
			name:       "debug hidden",
			log:        func(lg *logger.Logger) { lg.Debug("hidden") },
			goldenName: "debug_hidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Verbose(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetVerbose(true)
	lg.Debug("cache hit")
	assert.Equal(t, "cache hit\n", buf.String())
}

func TestLogger_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{
			name:       "plain error",
			err:        errors.New("boom"),
			goldenName: "error_plain",
		},
		{
			name: "zerr chain",
			err: zerr.Wrap(
				zerr.Wrap(errors.New("connection refused"), domain.ErrRegistryFetchFailed.Error()),
				"failed to load registries",
			),
			goldenName: "error_chain",
		},
		{
			name:       "metadata wrapper is skipped",
			err:        zerr.With(errors.New("permission denied"), "path", "/tmp/x"),
			goldenName: "error_metadata",
		},
		{
			name: "structured cause",
			err: zerr.Wrap(&domain.UnresolvedReferenceError{
				IDs: domain.NewPackageIDs([]string{"zig", "rust"}),
			}, "failed to compose environment"),
			goldenName: "error_unresolved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Error(tt.err)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error_Nil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Warn("careful")
	lg.Error(zerr.Wrap(errors.New("boom"), "failed"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var warn map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &warn))
	assert.Equal(t, "WARN", warn["level"])
	assert.Equal(t, "careful", warn["msg"])

	var failed map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &failed))
	assert.Equal(t, "ERROR", failed["level"])
	assert.Equal(t, "operation failed", failed["msg"])
	assert.NotNil(t, failed["error"])

	// Switching back keeps the output.
	buf.Reset()
	lg.SetJSON(false)
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestFormatError(t *testing.T) {
	err := zerr.Wrap(errors.New("multi\nline"), "top")
	assert.Equal(t, "Error: top\n\n  Caused by:\n    → multi\n      line", logger.FormatError(err))
}

func TestLogger_AsPort(t *testing.T) {
	lg, buf := newTestLogger(t)

	var log ports.Logger = lg
	log.Warn("registry cache is stale")
	assert.Equal(t, "! registry cache is stale\n", buf.String())
}

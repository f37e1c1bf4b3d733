package nix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.EnvironmentMaterializer = (*Materializer)(nil)

// Runner evaluates the Nix expression stored at path and returns the
// JSON printed by `nix print-dev-env --json`.
type Runner func(ctx context.Context, path string) ([]byte, error)

// Materializer implements ports.EnvironmentMaterializer using Nix.
type Materializer struct {
	run    Runner
	logger ports.Logger
	group  singleflight.Group
}

// NewMaterializer creates a Materializer that shells out to the nix binary.
func NewMaterializer(logger ports.Logger) *Materializer {
	return NewMaterializerWithRunner(logger, printDevEnv)
}

// NewMaterializerWithRunner creates a Materializer with a custom evaluator.
func NewMaterializerWithRunner(logger ports.Logger, run Runner) *Materializer {
	return &Materializer{run: run, logger: logger}
}

// Materialize returns the environment variables of the shell described by desc.
// Environments are cached under root by descriptor digest, and concurrent calls for
// the same descriptor share one evaluation.
func (m *Materializer) Materialize(
	ctx context.Context,
	root string,
	desc domain.ActivationDescriptor,
) ([]string, error) {
	digest := desc.Digest()
	cachePath := filepath.Join(root, domain.DefaultEnvCachePath(), digest+".json")

	v, err, _ := m.group.Do(digest, func() (any, error) {
		if cached, err := LoadEnvFromCache(cachePath); err == nil {
			return cached, nil
		}

		env, err := m.evaluate(ctx, desc)
		if err != nil {
			return nil, err
		}

		if err := SaveEnvToCache(cachePath, env); err != nil {
			m.logger.Warn(fmt.Sprintf("could not cache environment %s: %v", digest, err))
		}
		return env, nil
	})
	if err != nil {
		return nil, err
	}

	env, ok := v.([]string)
	if !ok {
		return nil, zerr.With(domain.ErrNixEvaluationFailed, "digest", digest)
	}
	return slices.Clone(env), nil
}

func (m *Materializer) evaluate(ctx context.Context, desc domain.ActivationDescriptor) ([]string, error) {
	tmpPath, cleanupFn, err := createNixTempFile(GenerateExpression(desc))
	if err != nil {
		return nil, err
	}
	defer cleanupFn()

	output, err := m.run(ctx, tmpPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrNixEvaluationFailed.Error()), "platform", desc.Platform.String())
	}

	env, err := ParseNixDevEnv(output)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixEvaluationFailed.Error())
	}
	return env, nil
}

func printDevEnv(ctx context.Context, path string) ([]byte, error) {
	//nolint:gosec // path is a trusted temp file created by us
	cmd := exec.CommandContext(ctx, "nix", "print-dev-env", "--json", "--file", path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, zerr.With(zerr.Wrap(err, "nix print-dev-env"), "stderr", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, zerr.Wrap(err, "nix print-dev-env")
	}
	return out, nil
}

// createNixTempFile creates a temporary file with the given Nix expression.
func createNixTempFile(nixExpr string) (tmpPath string, cleanup func(), err error) {
	tmpFile, err := os.CreateTemp("", "devshell-env-*.nix")
	if err != nil {
		return "", nil, zerr.Wrap(err, "failed to create temp nix file")
	}

	tmpPath = tmpFile.Name()
	cleanup = func() {
		_ = os.Remove(tmpPath)
	}

	if _, writeErr := tmpFile.WriteString(nixExpr); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, zerr.Wrap(writeErr, "failed to write nix expression")
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, zerr.Wrap(closeErr, "failed to close temp nix file")
	}

	return tmpPath, cleanup, nil
}

// LoadEnvFromCache attempts to load a cached environment.
func LoadEnvFromCache(path string) ([]string, error) {
	//nolint:gosec // Path is constructed from trusted cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNixCacheReadFailed
		}
		return nil, zerr.Wrap(err, domain.ErrNixCacheReadFailed.Error())
	}

	var env []string
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixCacheUnmarshalFailed.Error())
	}

	return env, nil
}

// SaveEnvToCache saves an environment to the cache.
func SaveEnvToCache(path string, env []string) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrNixCacheWriteFailed.Error())
	}

	if err := atomicWriteFile(path, data); err != nil {
		return zerr.Wrap(err, domain.ErrNixCacheWriteFailed.Error())
	}

	return nil
}

// ParseNixDevEnv parses the JSON output from nix print-dev-env and extracts environment variables.
func ParseNixDevEnv(jsonData []byte) ([]string, error) {
	var output nixDevEnvOutput
	if err := json.Unmarshal(jsonData, &output); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal nix output")
	}

	env := make([]string, 0, len(output.Variables))
	for key, variable := range output.Variables {
		if !ShouldIncludeVar(key) {
			continue
		}

		var valueStr string
		switch v := variable.Value.(type) {
		case string:
			valueStr = v
		case []any:
			// Arrays are PATH-like
			parts := make([]string, 0, len(v))
			for _, part := range v {
				if s, ok := part.(string); ok {
					parts = append(parts, s)
				}
			}
			valueStr = strings.Join(parts, ":")
		default:
			continue
		}

		env = append(env, key+"="+valueStr)
	}

	slices.Sort(env)
	return env, nil
}

// ShouldIncludeVar reports whether a variable from the dev env belongs in the activated shell.
// Build-related variables pass; interactive and Nix builder internals do not.
func ShouldIncludeVar(key string) bool {
	exclude := []string{
		"TERM",
		"SHELL",
		"EDITOR",
		"VISUAL",
		"PAGER",
		"LESS",
		"HOME",
		"USER",
		"LOGNAME",
		"PS1",
		"PS2",
		"TMP",
		"TMPDIR",
		"TEMP",
		"TEMPDIR",
		"NIX_BUILD_TOP",
		"NIX_BUILD_CORES",
		"NIX_LOG_FD",
		"SOURCE_DATE_EPOCH",
		"shellHook",
	}
	if slices.Contains(exclude, key) {
		return false
	}

	include := []string{
		"PATH",
		"GOROOT",
		"GOPATH",
		"GOCACHE",
		"CC",
		"CXX",
		"LD",
		"AR",
		"CFLAGS",
		"CXXFLAGS",
		"LDFLAGS",
		"PKG_CONFIG_PATH",
		"NIX_",
	}
	for _, prefix := range include {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

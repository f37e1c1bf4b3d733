// Package shell hands activation descriptors to an interactive POSIX shell.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

const defaultShell = "/bin/sh"

var _ ports.Activator = (*Activator)(nil)

// Activator implements ports.Activator using os/exec.
type Activator struct {
	logger ports.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

// NewActivator creates an Activator attached to the process's standard streams.
func NewActivator(logger ports.Logger) *Activator {
	return &Activator{
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
}

// WithIO replaces the streams the shell is attached to.
func (a *Activator) WithIO(stdin io.Reader, stdout, stderr io.Writer) *Activator {
	a.stdin, a.stdout, a.stderr = stdin, stdout, stderr
	return a
}

// Activate starts $SHELL in dir with the activation script as its startup file.
// It blocks until the shell exits.
func (a *Activator) Activate(ctx context.Context, dir string, desc domain.ActivationDescriptor, env []string) error {
	tmpDir, err := os.MkdirTemp("", "devshell-activate-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrShellStartFailed.Error())
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	script := filepath.Join(tmpDir, "activate.sh")
	if err := os.WriteFile(script, []byte(renderScript(desc, env)), domain.PrivateFilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrShellStartFailed.Error())
	}

	shellPath := a.getenv("SHELL")
	if shellPath == "" {
		shellPath = defaultShell
	}

	args, extraEnv, err := startupArgs(shellPath, script, tmpDir, a.getenv("HOME"))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrShellStartFailed.Error()), "shell", shellPath)
	}

	cmd := exec.CommandContext(ctx, shellPath, args...) //nolint:gosec // the user's own shell
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdin = a.stdin
	cmd.Stdout = a.stdout
	cmd.Stderr = a.stderr

	a.logger.Info("entering devshell for " + desc.Platform.String())

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The user's last command decides the exit status.
			return &domain.ShellExitError{Code: exitErr.ExitCode()}
		}
		return zerr.With(zerr.Wrap(err, domain.ErrShellStartFailed.Error()), "shell", shellPath)
	}
	return nil
}

// startupArgs returns the arguments and environment that make shellPath
// source script before its first prompt.
func startupArgs(shellPath, script, tmpDir, home string) ([]string, []string, error) {
	switch filepath.Base(shellPath) {
	case "bash":
		rc := filepath.Join(tmpDir, "bashrc")
		body := "[ -f " + quote(filepath.Join(home, ".bashrc")) + " ] && . " + quote(filepath.Join(home, ".bashrc")) + "\n" +
			". " + quote(script) + "\n"
		if err := os.WriteFile(rc, []byte(body), domain.PrivateFilePerm); err != nil {
			return nil, nil, err
		}
		return []string{"--rcfile", rc, "-i"}, nil, nil
	case "zsh":
		zdot := filepath.Join(tmpDir, "zdotdir")
		if err := os.MkdirAll(zdot, domain.DirPerm); err != nil {
			return nil, nil, err
		}
		body := "[ -f " + quote(filepath.Join(home, ".zshrc")) + " ] && . " + quote(filepath.Join(home, ".zshrc")) + "\n" +
			". " + quote(script) + "\n"
		if err := os.WriteFile(filepath.Join(zdot, ".zshrc"), []byte(body), domain.PrivateFilePerm); err != nil {
			return nil, nil, err
		}
		return []string{"-i"}, []string{"ZDOTDIR=" + zdot}, nil
	default:
		return []string{"-i"}, []string{"ENV=" + script}, nil
	}
}

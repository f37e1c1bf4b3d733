package ports

import (
	"context"
	"io"

	"go.trai.ch/devshell/internal/core/domain"
)

// Activator hands an activation descriptor to a shell.
// It is the only component that ever runs hook text.
//
//go:generate go run go.uber.org/mock/mockgen -source=activator.go -destination=mocks/mock_activator.go -package=mocks
type Activator interface {
	// Render writes a POSIX activation script for desc and env to w.
	Render(w io.Writer, desc domain.ActivationDescriptor, env []string) error

	// Activate starts an interactive shell in dir with env applied and the hook run.
	// It blocks until the shell exits.
	Activate(ctx context.Context, dir string, desc domain.ActivationDescriptor, env []string) error
}

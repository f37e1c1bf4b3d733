// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/devshell/internal/core/domain"
)

// EnvironmentMaterializer turns activation descriptors into process environments.
//
// Implementations are responsible for:
//   - Realising the descriptor's packages (e.g. through Nix)
//   - Constructing environment variables (PATH, PKG_CONFIG_PATH, etc.) for the shell
//
//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks
type EnvironmentMaterializer interface {
	// Materialize returns environment variables as "KEY=VALUE" strings suitable for process execution.
	// Results are cached under root. The hook is not executed here.
	Materialize(ctx context.Context, root string, desc domain.ActivationDescriptor) ([]string, error)
}

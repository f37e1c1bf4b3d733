package ports

import (
	"context"

	"go.trai.ch/devshell/internal/core/domain"
)

// RegistrySource loads base registries from a package index.
//
//go:generate go run go.uber.org/mock/mockgen -source=registry_source.go -destination=mocks/mock_registry_source.go -package=mocks
type RegistrySource interface {
	// Load returns the registry described by ref, restricted to packages available on platform.
	Load(ctx context.Context, ref domain.RegistryRef, platform domain.Platform) (*domain.Registry, error)
}

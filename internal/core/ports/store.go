package ports

import "go.trai.ch/devshell/internal/core/domain"

// DescriptorStore persists activation descriptors between runs.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type DescriptorStore interface {
	// Get retrieves the descriptor stored for a manifest digest and platform.
	// Returns nil, nil if not found.
	Get(root, manifestDigest string, platform domain.Platform) (*domain.ActivationDescriptor, error)

	// Put stores the descriptor under the manifest digest.
	Put(root, manifestDigest string, desc domain.ActivationDescriptor) error
}

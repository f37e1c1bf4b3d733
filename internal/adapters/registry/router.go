package registry

import (
	"context"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RegistrySource = (*Router)(nil)

// Router dispatches each registry reference to the source for its kind.
type Router struct {
	sources map[domain.RegistryKind]ports.RegistrySource
}

// NewRouter creates a Router. Kinds without a source fail with ErrRegistrySourceUnknown.
func NewRouter(sources map[domain.RegistryKind]ports.RegistrySource) *Router {
	return &Router{sources: sources}
}

// Load forwards ref to the source registered for ref.Kind().
func (r *Router) Load(ctx context.Context, ref domain.RegistryRef, platform domain.Platform) (*domain.Registry, error) {
	source, ok := r.sources[ref.Kind()]
	if !ok || source == nil {
		err := zerr.With(domain.ErrRegistrySourceUnknown, "source", ref.Source)
		return nil, zerr.With(err, "kind", string(ref.Kind()))
	}
	return source.Load(ctx, ref, platform)
}

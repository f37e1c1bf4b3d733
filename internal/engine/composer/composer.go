package composer

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
)

// Composer runs the full pipeline for one manifest and platform.
// It holds no per-call state, so concurrent Compose calls are safe.
type Composer struct {
	source ports.RegistrySource
	tracer ports.Tracer
	logger ports.Logger
}

// New creates a new Composer.
func New(source ports.RegistrySource, tracer ports.Tracer, logger ports.Logger) *Composer {
	return &Composer{
		source: source,
		tracer: tracer,
		logger: logger,
	}
}

// Compose loads the base registry, applies overlays, resolves the spec and checks constraints.
func (c *Composer) Compose(
	ctx context.Context,
	m *domain.Manifest,
	platform domain.Platform,
) (*domain.ResolvedEnvironment, error) {
	if err := platform.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "compose "+platform.String(),
		ports.WithAttribute("devshell.platform", platform.String()))
	defer span.End()

	base, err := c.LoadBase(ctx, m, platform)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	_, ospan := c.tracer.Start(ctx, "Applying overlays")
	ospan.SetAttribute("devshell.overlays", len(m.Overlays))
	final, err := ApplyOverlays(base, m.Overlays)
	if err != nil {
		ospan.RecordError(err)
		ospan.End()
		span.RecordError(err)
		return nil, err
	}
	ospan.End()

	_, rspan := c.tracer.Start(ctx, "Resolving environment")
	resolved, err := Resolve(final, m.Spec)
	if err != nil {
		rspan.RecordError(err)
		rspan.End()
		span.RecordError(err)
		return nil, err
	}
	resolved.Platform = platform
	rspan.SetAttribute("devshell.packages", len(resolved.Packages))
	rspan.End()

	if ignored := unconstrained(resolved, m.Constraints); len(ignored) > 0 {
		c.logger.Warn(fmt.Sprintf("constraints ignored for packages not in the environment: %s",
			strings.Join(ignored, ", ")))
	}
	if err := CheckConstraints(resolved, m.Constraints); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttribute("devshell.registry_digest", resolved.RegistryDigest)
	return resolved, nil
}

// LoadBase loads every registry the manifest references and merges them in declaration order.
func (c *Composer) LoadBase(
	ctx context.Context,
	m *domain.Manifest,
	platform domain.Platform,
) (*domain.Registry, error) {
	ctx, span := c.tracer.Start(ctx, "Loading registries")
	defer span.End()

	parts := make([]domain.SourcedRegistry, 0, len(m.Registries))
	for _, ref := range m.Registries {
		reg, err := c.source.Load(ctx, ref, platform)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		parts = append(parts, domain.SourcedRegistry{Source: ref.Source, Registry: reg})
	}

	base, err := domain.MergeRegistries(parts...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("devshell.base_packages", base.Len())
	return base, nil
}

// Package composer implements the registry, overlay and resolution pipeline.
package composer

import (
	"errors"

	"go.trai.ch/devshell/internal/core/domain"
)

// ApplyOverlays folds overlays left to right over base.
// Each overlay observes only the registry produced by the one before it.
// On failure it returns an *domain.OverlayEvaluationError carrying the
// overlay's position and no registry.
func ApplyOverlays(base *domain.Registry, overlays []domain.Overlay) (*domain.Registry, error) {
	current := base
	if current == nil {
		current = domain.EmptyRegistry()
	}

	for i, overlay := range overlays {
		next, err := overlay.Apply(current)
		if err != nil {
			var evalErr *domain.OverlayEvaluationError
			if errors.As(err, &evalErr) {
				positioned := *evalErr
				positioned.Position = i
				return nil, &positioned
			}
			return nil, &domain.OverlayEvaluationError{Position: i, Overlay: overlay.Name, Op: -1, Cause: err}
		}
		current = next
	}

	return current, nil
}

package composer

import (
	"go.trai.ch/devshell/internal/core/domain"
)

// Resolve looks up every requested identifier in reg.
// Native inputs come first, then build inputs; an identifier is kept at its first occurrence only.
// If anything is missing, Resolve returns an *domain.UnresolvedReferenceError listing
// every missing identifier and no environment.
func Resolve(reg *domain.Registry, spec domain.EnvironmentSpec) (*domain.ResolvedEnvironment, error) {
	r := resolution{
		reg:     reg,
		seen:    make(map[domain.PackageID]struct{}),
		missing: make(map[domain.PackageID]struct{}),
	}

	native := r.class(spec.NativeBuildInputs)
	build := r.class(spec.BuildInputs)

	if len(r.missingIDs) > 0 {
		return nil, &domain.UnresolvedReferenceError{IDs: r.missingIDs}
	}

	return &domain.ResolvedEnvironment{
		Registry:          reg,
		RegistryDigest:    reg.Digest(),
		Packages:          r.packages,
		NativeBuildInputs: native,
		BuildInputs:       build,
		ShellHook:         spec.ShellHook,
	}, nil
}

type resolution struct {
	reg        *domain.Registry
	seen       map[domain.PackageID]struct{}
	missing    map[domain.PackageID]struct{}
	packages   []domain.PackageDef
	missingIDs []domain.PackageID
}

// class resolves one input list and returns the ids it contributed.
func (r *resolution) class(ids []domain.PackageID) []domain.PackageID {
	out := make([]domain.PackageID, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.seen[id]; ok {
			continue
		}
		if _, ok := r.missing[id]; ok {
			continue
		}

		def, ok := r.reg.Lookup(id)
		if !ok {
			r.missing[id] = struct{}{}
			r.missingIDs = append(r.missingIDs, id)
			continue
		}

		r.seen[id] = struct{}{}
		r.packages = append(r.packages, def)
		out = append(out, id)
	}
	return out
}

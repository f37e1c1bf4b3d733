package composer

import (
	"slices"

	"go.trai.ch/devshell/internal/core/domain"
)

// Assemble packages a resolved environment for the activation layer.
// The hook is copied verbatim.
func Assemble(resolved *domain.ResolvedEnvironment) domain.ActivationDescriptor {
	packages := make([]domain.PackageDef, len(resolved.Packages))
	for i, p := range resolved.Packages {
		packages[i] = p.Clone()
	}

	return domain.ActivationDescriptor{
		Platform:          resolved.Platform,
		Packages:          packages,
		NativeBuildInputs: nonNil(resolved.NativeBuildInputs),
		BuildInputs:       nonNil(resolved.BuildInputs),
		ShellHook:         resolved.ShellHook,
		RegistryDigest:    resolved.RegistryDigest,
	}
}

func nonNil(ids []domain.PackageID) []domain.PackageID {
	if ids == nil {
		return []domain.PackageID{}
	}
	return slices.Clone(ids)
}

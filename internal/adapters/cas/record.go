package cas

import "go.trai.ch/devshell/internal/core/domain"

// record is the on-disk form of an activation descriptor.
type record struct {
	Platform          string          `cbor:"1,keyasint"`
	Packages          []packageRecord `cbor:"2,keyasint"`
	NativeBuildInputs []string        `cbor:"3,keyasint"`
	BuildInputs       []string        `cbor:"4,keyasint"`
	ShellHook         string          `cbor:"5,keyasint,omitempty"`
	RegistryDigest    string          `cbor:"6,keyasint"`
}

type packageRecord struct {
	ID      string            `cbor:"1,keyasint"`
	Version string            `cbor:"2,keyasint,omitempty"`
	Attrs   map[string]string `cbor:"3,keyasint,omitempty"`
}

func newRecord(d domain.ActivationDescriptor) record {
	pkgs := make([]packageRecord, len(d.Packages))
	for i, p := range d.Packages {
		pkgs[i] = packageRecord{ID: p.ID.String(), Version: p.Version, Attrs: p.Attrs}
	}
	return record{
		Platform:          d.Platform.String(),
		Packages:          pkgs,
		NativeBuildInputs: domain.PackageIDStrings(d.NativeBuildInputs),
		BuildInputs:       domain.PackageIDStrings(d.BuildInputs),
		ShellHook:         d.ShellHook,
		RegistryDigest:    d.RegistryDigest,
	}
}

func (r record) descriptor() domain.ActivationDescriptor {
	pkgs := make([]domain.PackageDef, len(r.Packages))
	for i, p := range r.Packages {
		pkgs[i] = domain.PackageDef{ID: domain.NewPackageID(p.ID), Version: p.Version, Attrs: p.Attrs}
	}
	return domain.ActivationDescriptor{
		Platform:          domain.Platform(r.Platform),
		Packages:          pkgs,
		NativeBuildInputs: domain.NewPackageIDs(r.NativeBuildInputs),
		BuildInputs:       domain.NewPackageIDs(r.BuildInputs),
		ShellHook:         r.ShellHook,
		RegistryDigest:    r.RegistryDigest,
	}
}

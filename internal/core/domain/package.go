package domain

import (
	"maps"
	"slices"
)

// Well-known attribute keys carried in a PackageDef payload.
const (
	// AttrFlake is the flake reference providing the package (e.g. "github:NixOS/nixpkgs/<rev>").
	AttrFlake = "flake"
	// AttrPath is the attribute path of the package inside its flake (e.g. "go_1_22").
	AttrPath = "attr"
	// AttrOut is a realised store path for the package, when known.
	AttrOut = "out"
	// AttrSummary is a one-line description of the package.
	AttrSummary = "summary"
)

// PackageDef is a package definition held by a Registry.
// Everything except ID is an opaque payload to the engine.
type PackageDef struct {
	// ID is the package identifier, unique within a registry snapshot.
	ID PackageID `json:"id" cbor:"1,keyasint"`

	// Version is the package version as reported by its source (may be empty).
	Version string `json:"version,omitempty" cbor:"2,keyasint,omitempty"`

	// Attrs holds build/runtime metadata (flake reference, attribute path, ...).
	Attrs map[string]string `json:"attrs,omitempty" cbor:"3,keyasint,omitempty"`
}

// Attr returns a single attribute value.
func (p PackageDef) Attr(key string) string {
	return p.Attrs[key]
}

// Clone returns a deep copy of the definition so callers cannot alias registry state.
func (p PackageDef) Clone() PackageDef {
	out := p
	if p.Attrs != nil {
		out.Attrs = maps.Clone(p.Attrs)
	}
	return out
}

// WithID returns a copy of the definition under a different identifier.
func (p PackageDef) WithID(id PackageID) PackageDef {
	out := p.Clone()
	out.ID = id
	return out
}

// Merge returns a copy of p with a non-empty version and the given attrs layered on top.
// An attribute set to the empty string is removed.
func (p PackageDef) Merge(version string, attrs map[string]string) PackageDef {
	out := p.Clone()
	if version != "" {
		out.Version = version
	}
	if len(attrs) == 0 {
		return out
	}
	if out.Attrs == nil {
		out.Attrs = make(map[string]string, len(attrs))
	}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if attrs[k] == "" {
			delete(out.Attrs, k)
			continue
		}
		out.Attrs[k] = attrs[k]
	}
	if len(out.Attrs) == 0 {
		out.Attrs = nil
	}
	return out
}

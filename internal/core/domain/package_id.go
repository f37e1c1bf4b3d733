package domain

import "unique"

// PackageID is the opaque identifier of a package within a registry snapshot.
// It wraps a unique.Handle[string] so identifiers repeated across registries,
// overlays and environment specs share one allocation and compare cheaply.
type PackageID struct {
	h unique.Handle[string]
}

// NewPackageID creates a PackageID from a string.
func NewPackageID(s string) PackageID {
	return PackageID{
		h: unique.Make(s),
	}
}

// NewPackageIDs converts a slice of strings to PackageIDs, preserving order.
func NewPackageIDs(ss []string) []PackageID {
	ids := make([]PackageID, len(ss))
	for i, s := range ss {
		ids[i] = NewPackageID(s)
	}
	return ids
}

// String returns the underlying identifier.
func (id PackageID) String() string {
	var zero unique.Handle[string]
	if id.h == zero {
		return ""
	}
	return id.h.Value()
}

// IsZero reports whether the identifier is empty.
func (id PackageID) IsZero() bool {
	return id.String() == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id PackageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *PackageID) UnmarshalText(text []byte) error {
	id.h = unique.Make(string(text))
	return nil
}

// PackageIDStrings converts PackageIDs back to plain strings.
func PackageIDStrings(ids []PackageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

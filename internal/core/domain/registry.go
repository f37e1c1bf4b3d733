package domain

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Registry is an immutable mapping from PackageID to PackageDef.
// A nil *Registry behaves like an empty registry.
type Registry struct {
	entries map[PackageID]PackageDef
	ids     []PackageID
}

// NewRegistry builds a registry from the given definitions.
// It fails with a DuplicateRegistryKeyError if two definitions share an id.
func NewRegistry(defs ...PackageDef) (*Registry, error) {
	b := NewRegistryBuilder()
	for _, def := range defs {
		if err := b.Add(def); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// EmptyRegistry returns a registry with no packages.
func EmptyRegistry() *Registry {
	return NewRegistryBuilder().Build()
}

// Len returns the number of packages.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Has reports whether the registry defines id.
func (r *Registry) Has(id PackageID) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[id]
	return ok
}

// Lookup returns a copy of the definition for id.
func (r *Registry) Lookup(id PackageID) (PackageDef, bool) {
	if r == nil {
		return PackageDef{}, false
	}
	def, ok := r.entries[id]
	if !ok {
		return PackageDef{}, false
	}
	return def.Clone(), true
}

// IDs returns the package identifiers sorted lexically.
func (r *Registry) IDs() []PackageID {
	if r == nil {
		return nil
	}
	return slices.Clone(r.ids)
}

// All yields every package definition in identifier order.
func (r *Registry) All() iter.Seq[PackageDef] {
	return func(yield func(PackageDef) bool) {
		if r == nil {
			return
		}
		for _, id := range r.ids {
			if !yield(r.entries[id].Clone()) {
				return
			}
		}
	}
}

// Edit returns a builder seeded with the registry's contents.
// Changes made through the builder never affect r.
func (r *Registry) Edit() *RegistryBuilder {
	b := NewRegistryBuilder()
	if r == nil {
		return b
	}
	for id, def := range r.entries {
		b.entries[id] = def.Clone()
	}
	return b
}

// Digest returns a stable content hash of the registry.
// Two registries with the same packages, versions and attributes share a digest.
func (r *Registry) Digest() string {
	h := xxhash.New()
	for def := range r.All() {
		_, _ = h.WriteString(def.ID.String())
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(def.Version)
		_, _ = h.Write([]byte{0})
		for _, k := range slices.Sorted(maps.Keys(def.Attrs)) {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{'='})
			_, _ = h.WriteString(def.Attrs[k])
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1}) // Package separator
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// RegistryBuilder accumulates definitions for a new Registry.
// It is not safe for concurrent use.
type RegistryBuilder struct {
	entries map[PackageID]PackageDef
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{entries: make(map[PackageID]PackageDef)}
}

// Add inserts def, failing if its id is already present.
func (b *RegistryBuilder) Add(def PackageDef) error {
	if def.ID.IsZero() {
		return ErrEmptyPackageID
	}
	if _, exists := b.entries[def.ID]; exists {
		return &DuplicateRegistryKeyError{ID: def.ID}
	}
	b.entries[def.ID] = def.Clone()
	return nil
}

// Set inserts or replaces def.
func (b *RegistryBuilder) Set(def PackageDef) error {
	if def.ID.IsZero() {
		return ErrEmptyPackageID
	}
	b.entries[def.ID] = def.Clone()
	return nil
}

// Lookup returns a copy of the current definition for id.
func (b *RegistryBuilder) Lookup(id PackageID) (PackageDef, bool) {
	def, ok := b.entries[id]
	if !ok {
		return PackageDef{}, false
	}
	return def.Clone(), true
}

// Delete removes id and reports whether it was present.
func (b *RegistryBuilder) Delete(id PackageID) bool {
	if _, ok := b.entries[id]; !ok {
		return false
	}
	delete(b.entries, id)
	return true
}

// Build freezes the current contents into a Registry.
// The builder may keep being used; the returned registry does not observe later changes.
func (b *RegistryBuilder) Build() *Registry {
	entries := make(map[PackageID]PackageDef, len(b.entries))
	ids := make([]PackageID, 0, len(b.entries))
	for id, def := range b.entries {
		entries[id] = def.Clone()
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(x, y PackageID) int {
		return cmp.Compare(x.String(), y.String())
	})
	return &Registry{entries: entries, ids: ids}
}

// SourcedRegistry pairs a registry with the name of the source it was loaded from.
type SourcedRegistry struct {
	Source   string
	Registry *Registry
}

// MergeRegistries unions registries in order.
// A package defined by more than one part is a DuplicateRegistryKeyError naming
// the later source; only overlays may supersede a definition.
func MergeRegistries(parts ...SourcedRegistry) (*Registry, error) {
	b := NewRegistryBuilder()
	for _, part := range parts {
		for def := range part.Registry.All() {
			if err := b.Add(def); err != nil {
				if dup, ok := err.(*DuplicateRegistryKeyError); ok {
					dup.Source = part.Source
				}
				return nil, err
			}
		}
	}
	return b.Build(), nil
}

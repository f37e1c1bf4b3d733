package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// EnvironmentSpec is the declarative request resolved against a final registry.
// Identifiers may repeat within and across both lists.
type EnvironmentSpec struct {
	NativeBuildInputs []PackageID
	BuildInputs       []PackageID
	// ShellHook is passed through untouched. Empty means no hook.
	ShellHook string
}

// IsEmpty reports whether the spec requests no packages.
func (s EnvironmentSpec) IsEmpty() bool {
	return len(s.NativeBuildInputs) == 0 && len(s.BuildInputs) == 0
}

// ResolvedEnvironment is the result of resolving an EnvironmentSpec.
// It is built once per resolution and never mutated.
type ResolvedEnvironment struct {
	Platform Platform

	// Registry is the final registry snapshot the spec was resolved against.
	Registry       *Registry
	RegistryDigest string

	// Packages holds native inputs first, then build inputs, without duplicates.
	Packages []PackageDef

	// NativeBuildInputs and BuildInputs are the deduplicated ids per class.
	// An id requested by both classes only appears under NativeBuildInputs.
	NativeBuildInputs []PackageID
	BuildInputs       []PackageID

	ShellHook string
}

// HasHook reports whether an activation hook was supplied.
func (e *ResolvedEnvironment) HasHook() bool {
	return e.ShellHook != ""
}

// ActivationDescriptor is what the activation layer consumes.
// It carries no registry or overlay knowledge.
type ActivationDescriptor struct {
	Platform          Platform     `json:"platform"`
	Packages          []PackageDef `json:"packages"`
	NativeBuildInputs []PackageID  `json:"nativeBuildInputs"`
	BuildInputs       []PackageID  `json:"buildInputs"`
	ShellHook         string       `json:"shellHook,omitempty"`
	RegistryDigest    string       `json:"registryDigest"`
}

// HasHook reports whether the descriptor carries an activation hook.
func (d ActivationDescriptor) HasHook() bool {
	return d.ShellHook != ""
}

// PackageIDs returns the ids of every package in order.
func (d ActivationDescriptor) PackageIDs() []PackageID {
	ids := make([]PackageID, len(d.Packages))
	for i, p := range d.Packages {
		ids[i] = p.ID
	}
	return ids
}

// Digest returns a stable content hash of the descriptor.
// It is used as the key of materialized environment caches.
func (d ActivationDescriptor) Digest() string {
	h := xxhash.New()
	_, _ = h.WriteString(d.Platform.String())
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(d.RegistryDigest)
	_, _ = h.Write([]byte{0})
	for _, p := range d.Packages {
		_, _ = h.WriteString(p.ID.String())
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Version)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Attr(AttrFlake))
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Attr(AttrPath))
		_, _ = h.Write([]byte{1})
	}
	for _, id := range d.BuildInputs {
		_, _ = h.WriteString(id.String())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	_, _ = h.WriteString(d.ShellHook)
	return fmt.Sprintf("%016x", h.Sum64())
}

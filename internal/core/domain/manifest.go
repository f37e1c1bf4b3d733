package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RegistryKind classifies where a registry reference loads from.
type RegistryKind string

const (
	// RegistryKindFile is a local index file relative to the manifest directory.
	RegistryKindFile RegistryKind = "file"
	// RegistryKindHTTP is a remote index served over http(s).
	RegistryKindHTTP RegistryKind = "http"
	// RegistryKindNixHub resolves name/version pairs through the NixHub API.
	RegistryKindNixHub RegistryKind = "nixhub"
)

// NixHubSource is the reserved source name for NixHub registries.
const NixHubSource = "nixhub"

// RegistryRef points at one registry source declared in the manifest.
type RegistryRef struct {
	// Source is a path, an http(s) URL or "nixhub".
	Source string
	// Packages lists name -> version requests for NixHub sources.
	Packages map[string]string
	// Dir is the directory relative paths are resolved against.
	Dir string
}

// Kind derives the registry kind from Source.
func (r RegistryRef) Kind() RegistryKind {
	switch {
	case r.Source == NixHubSource:
		return RegistryKindNixHub
	case strings.HasPrefix(r.Source, "http://"), strings.HasPrefix(r.Source, "https://"):
		return RegistryKindHTTP
	default:
		return RegistryKindFile
	}
}

// Manifest is the parsed devshell.yaml.
type Manifest struct {
	// Path is the absolute path of the manifest file.
	Path string
	// Dir is the directory containing the manifest.
	Dir string

	Registries  []RegistryRef
	Platforms   []Platform
	Overlays    []Overlay
	Spec        EnvironmentSpec
	Constraints map[string]string

	// Files lists every local file the manifest was assembled from
	// (the manifest itself, registry indexes, overlay files).
	Files []string
}

// TargetPlatforms returns the declared platforms or the current platform when none are declared.
func (m *Manifest) TargetPlatforms() []Platform {
	if len(m.Platforms) == 0 {
		return []Platform{CurrentPlatform()}
	}
	return slices.Clone(m.Platforms)
}

// Digest returns a content hash of everything that influences resolution.
func (m *Manifest) Digest() string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	sep := func() { _, _ = h.Write([]byte{1}) }

	for _, ref := range m.Registries {
		write(ref.Source)
		for _, k := range slices.Sorted(maps.Keys(ref.Packages)) {
			write(k)
			write(ref.Packages[k])
		}
		sep()
	}
	for _, p := range m.Platforms {
		write(p.String())
	}
	sep()
	for _, o := range m.Overlays {
		write(o.Name)
		for _, op := range o.Ops {
			write(string(op.Kind))
			write(op.Package.String())
			write(op.From.String())
			write(op.Version)
			for _, k := range slices.Sorted(maps.Keys(op.Attrs)) {
				write(k)
				write(op.Attrs[k])
			}
		}
		sep()
	}
	for _, id := range m.Spec.NativeBuildInputs {
		write(id.String())
	}
	sep()
	for _, id := range m.Spec.BuildInputs {
		write(id.String())
	}
	sep()
	write(m.Spec.ShellHook)
	for _, k := range slices.Sorted(maps.Keys(m.Constraints)) {
		write(k)
		write(m.Constraints[k])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

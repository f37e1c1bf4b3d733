// Package registry implements registry sources backed by index files.
package registry

import (
	"slices"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// indexVersion is the only index schema version understood by this package.
const indexVersion = "1"

// Index represents the structure of a registry index file.
// JSON indexes parse through the same YAML decoder.
type Index struct {
	Version  string         `yaml:"version"`
	Packages []IndexPackage `yaml:"packages"`
}

// IndexPackage represents one package entry of an index.
type IndexPackage struct {
	Name    string            `yaml:"name"`
	Version string            `yaml:"version"`
	Systems []string          `yaml:"systems"`
	Attrs   map[string]string `yaml:"attrs"`
}

// availableOn reports whether the package is built for platform. No systems means every platform.
func (p IndexPackage) availableOn(platform domain.Platform) bool {
	return len(p.Systems) == 0 || slices.Contains(p.Systems, platform.String())
}

// ParseIndex decodes an index and returns the registry of packages available on platform.
func ParseIndex(data []byte, source string, platform domain.Platform) (*domain.Registry, error) {
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryParseFailed.Error()), "source", source)
	}

	if idx.Version != "" && idx.Version != indexVersion {
		err := zerr.With(domain.ErrRegistryParseFailed, "reason", "unsupported index version "+idx.Version)
		return nil, zerr.With(err, "source", source)
	}

	b := domain.NewRegistryBuilder()
	seen := make(map[string]bool, len(idx.Packages))
	for _, p := range idx.Packages {
		if p.Name == "" {
			err := zerr.With(domain.ErrEmptyPackageID, "source", source)
			return nil, zerr.With(err, "version", p.Version)
		}
		// Duplicates are rejected regardless of platform filtering.
		if seen[p.Name] {
			return nil, &domain.DuplicateRegistryKeyError{ID: domain.NewPackageID(p.Name), Source: source}
		}
		seen[p.Name] = true

		if !p.availableOn(platform) {
			continue
		}
		if err := b.Add(domain.PackageDef{
			ID:      domain.NewPackageID(p.Name),
			Version: p.Version,
			Attrs:   p.Attrs,
		}); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

package ports

import "go.trai.ch/devshell/internal/core/domain"

// ManifestLoader defines the interface for loading the environment manifest.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ManifestLoader interface {
	// Load finds devshell.yaml starting at cwd and walking upwards, and parses it
	// together with any overlay files it references.
	Load(cwd string) (*domain.Manifest, error)

	// DiscoverRoot walks up from cwd to find the directory containing devshell.yaml.
	DiscoverRoot(cwd string) (string, error)
}

package config

// Manifest represents the structure of the devshell.yaml configuration file.
type Manifest struct {
	Version           string            `yaml:"version"`
	Registry          []RegistryDTO     `yaml:"registry"`
	Platforms         []string          `yaml:"platforms"`
	Overlays          []OverlayDTO      `yaml:"overlays"`
	NativeBuildInputs []string          `yaml:"nativeBuildInputs"`
	BuildInputs       []string          `yaml:"buildInputs"`
	Constraints       map[string]string `yaml:"constraints"`
	ShellHook         string            `yaml:"shellHook"`
}

// RegistryDTO represents one registry source in the manifest.
type RegistryDTO struct {
	Source   string            `yaml:"source"`
	Packages map[string]string `yaml:"packages"`
}

// OverlayDTO represents an overlay, given either inline or as a file reference.
type OverlayDTO struct {
	Name string  `yaml:"name"`
	File string  `yaml:"file"`
	Ops  []OpDTO `yaml:"ops"`
}

// OverlayFile represents a standalone overlay file.
type OverlayFile struct {
	Name string  `yaml:"name"`
	Ops  []OpDTO `yaml:"ops"`
}

// OpDTO represents a single overlay operation.
type OpDTO struct {
	Op      string            `yaml:"op"`
	Package string            `yaml:"package"`
	From    string            `yaml:"from"`
	Version string            `yaml:"version"`
	Attrs   map[string]string `yaml:"attrs"`
}

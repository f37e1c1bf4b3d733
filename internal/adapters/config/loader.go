// Package config provides the manifest loader for devshell.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// supportedVersion is the only manifest schema version understood by this loader.
const supportedVersion = "1"

// Loader implements ports.ManifestLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds devshell.yaml from cwd upwards and returns the parsed domain.Manifest.
func (l *Loader) Load(cwd string) (*domain.Manifest, error) {
	root, err := l.DiscoverRoot(cwd)
	if err != nil {
		return nil, err
	}
	return l.loadManifest(filepath.Join(root, domain.ManifestFileName))
}

// DiscoverRoot walks up from cwd to the first directory containing devshell.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	currentDir, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrConfigNotFound.Error()), "cwd", cwd)
	}

	for {
		if _, err := os.Stat(filepath.Join(currentDir, domain.ManifestFileName)); err == nil {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func (l *Loader) loadManifest(configPath string) (*domain.Manifest, error) {
	var dto Manifest
	if err := readAndUnmarshalYAML(configPath, &dto); err != nil {
		return nil, zerr.With(err, "file", configPath)
	}

	if dto.Version != "" && dto.Version != supportedVersion {
		return nil, zerr.With(domain.ErrUnsupportedManifestVersion, "version", dto.Version)
	}

	dir := filepath.Dir(configPath)
	m := &domain.Manifest{
		Path:        configPath,
		Dir:         dir,
		Constraints: dto.Constraints,
		Files:       []string{configPath},
	}

	if err := l.buildRegistries(m, dto.Registry); err != nil {
		return nil, err
	}

	platforms, err := buildPlatforms(dto.Platforms)
	if err != nil {
		return nil, err
	}
	m.Platforms = platforms

	if err := l.buildOverlays(m, dto.Overlays); err != nil {
		return nil, err
	}

	native, err := buildInputs("nativeBuildInputs", dto.NativeBuildInputs)
	if err != nil {
		return nil, err
	}
	build, err := buildInputs("buildInputs", dto.BuildInputs)
	if err != nil {
		return nil, err
	}
	m.Spec = domain.EnvironmentSpec{
		NativeBuildInputs: native,
		BuildInputs:       build,
		ShellHook:         dto.ShellHook,
	}

	return m, nil
}

func (l *Loader) buildRegistries(m *domain.Manifest, dtos []RegistryDTO) error {
	if len(dtos) == 0 {
		l.Logger.Warn(fmt.Sprintf("no registry declared in %s, only overlay packages are available", domain.ManifestFileName))
	}

	m.Registries = make([]domain.RegistryRef, 0, len(dtos))
	for i, dto := range dtos {
		if dto.Source == "" {
			err := zerr.With(domain.ErrInvalidManifest, "reason", "registry source must not be empty")
			return zerr.With(err, "registry", strconv.Itoa(i))
		}

		ref := domain.RegistryRef{Source: dto.Source, Packages: dto.Packages, Dir: m.Dir}
		switch ref.Kind() {
		case domain.RegistryKindNixHub:
			if len(dto.Packages) == 0 {
				l.Logger.Warn(fmt.Sprintf("registry %d: nixhub source lists no packages", i))
			}
		case domain.RegistryKindFile:
			m.Files = append(m.Files, resolvePath(m.Dir, dto.Source))
			if len(dto.Packages) > 0 {
				l.Logger.Warn(fmt.Sprintf("registry %d: 'packages' has no effect for %s", i, dto.Source))
			}
		case domain.RegistryKindHTTP:
			if len(dto.Packages) > 0 {
				l.Logger.Warn(fmt.Sprintf("registry %d: 'packages' has no effect for %s", i, dto.Source))
			}
		}
		m.Registries = append(m.Registries, ref)
	}
	return nil
}

func (l *Loader) buildOverlays(m *domain.Manifest, dtos []OverlayDTO) error {
	m.Overlays = make([]domain.Overlay, 0, len(dtos))
	for i, dto := range dtos {
		name := dto.Name
		ops := dto.Ops

		if dto.File != "" {
			if len(dto.Ops) > 0 {
				err := zerr.With(domain.ErrInvalidManifest, "reason", "overlay sets both 'file' and 'ops'")
				return zerr.With(err, "overlay", strconv.Itoa(i))
			}

			path := resolvePath(m.Dir, dto.File)
			var file OverlayFile
			if err := readAndUnmarshalYAML(path, &file); err != nil {
				return zerr.With(err, "file", path)
			}
			m.Files = append(m.Files, path)
			ops = file.Ops
			if name == "" {
				name = file.Name
			}
		}

		if name == "" {
			name = fmt.Sprintf("overlay-%d", i)
		}
		m.Overlays = append(m.Overlays, buildOverlay(name, ops))
	}
	return nil
}

// buildOverlay converts DTO operations verbatim. Malformed operations are
// reported by the overlay pipeline with their position.
func buildOverlay(name string, ops []OpDTO) domain.Overlay {
	overlay := domain.Overlay{Name: name, Ops: make([]domain.OverlayOp, len(ops))}
	for i, op := range ops {
		overlay.Ops[i] = domain.OverlayOp{
			Kind:    domain.OverlayOpKind(op.Op),
			Package: domain.NewPackageID(op.Package),
			From:    domain.NewPackageID(op.From),
			Version: op.Version,
			Attrs:   op.Attrs,
		}
	}
	return overlay
}

func buildPlatforms(names []string) ([]domain.Platform, error) {
	if len(names) == 0 {
		return nil, nil
	}

	platforms := make([]domain.Platform, 0, len(names))
	seen := make(map[domain.Platform]bool, len(names))
	for _, name := range names {
		p := domain.Platform(name)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	return platforms, nil
}

func buildInputs(field string, names []string) ([]domain.PackageID, error) {
	for i, name := range names {
		if name == "" {
			err := zerr.With(domain.ErrInvalidManifest, "reason", "empty package name")
			err = zerr.With(err, "field", field)
			return nil, zerr.With(err, "index", strconv.Itoa(i))
		}
	}
	return domain.NewPackageIDs(names), nil
}

// resolvePath joins p with dir unless p is absolute.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(dir, p))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}

package registry

import (
	"context"
	"os"
	"path/filepath"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RegistrySource = (*FileSource)(nil)

// FileSource loads registries from local index files.
type FileSource struct{}

// NewFileSource creates a new FileSource.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Load reads the index at ref.Source, relative to ref.Dir.
func (s *FileSource) Load(_ context.Context, ref domain.RegistryRef, platform domain.Platform) (*domain.Registry, error) {
	path := ref.Source
	if !filepath.IsAbs(path) {
		path = filepath.Join(ref.Dir, path)
	}

	//nolint:gosec // Path comes from the user's own manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryReadFailed.Error()), "path", path)
	}

	return ParseIndex(data, ref.Source, platform)
}

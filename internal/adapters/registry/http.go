package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	httpClientTimeout = 30 * time.Second

	// DefaultMemoTTL is how long a fetched index is reused within one process.
	DefaultMemoTTL = 5 * time.Minute
	memoCleanup    = 10 * time.Minute
)

var _ ports.RegistrySource = (*HTTPSource)(nil)

// HTTPSource loads registries from remote index files.
// Fetched indexes are kept in memory for DefaultMemoTTL and persisted under the
// manifest's .devshell/cache/registry directory. When a fetch fails, the persisted
// copy is used instead.
type HTTPSource struct {
	client *http.Client
	memo   *gocache.Cache
	logger ports.Logger
}

// NewHTTPSource creates a new HTTPSource.
func NewHTTPSource(logger ports.Logger) *HTTPSource {
	return NewHTTPSourceWithClient(logger, &http.Client{Timeout: httpClientTimeout})
}

// NewHTTPSourceWithClient creates an HTTPSource with a custom http client.
func NewHTTPSourceWithClient(logger ports.Logger, client *http.Client) *HTTPSource {
	return &HTTPSource{
		client: client,
		memo:   gocache.New(DefaultMemoTTL, memoCleanup),
		logger: logger,
	}
}

// Load fetches the index at ref.Source.
func (s *HTTPSource) Load(ctx context.Context, ref domain.RegistryRef, platform domain.Platform) (*domain.Registry, error) {
	if cached, found := s.memo.Get(ref.Source); found {
		if data, ok := cached.([]byte); ok {
			return ParseIndex(data, ref.Source, platform)
		}
	}

	cachePath := CachePath(ref)

	data, fetchErr := s.fetch(ctx, ref.Source)
	if fetchErr != nil {
		//nolint:gosec // Path is constructed from trusted directory and hashed filename
		stale, readErr := os.ReadFile(cachePath)
		if readErr != nil {
			return nil, fetchErr
		}
		s.logger.Warn(fmt.Sprintf("could not fetch %s, using cached index", ref.Source))
		data = stale
	} else if err := atomicWriteFile(cachePath, data); err != nil {
		// The registry is usable without the on-disk copy.
		s.logger.Warn(fmt.Sprintf("could not cache %s: %v", ref.Source, err))
	}

	reg, err := ParseIndex(data, ref.Source, platform)
	if err != nil {
		return nil, err
	}
	s.memo.SetDefault(ref.Source, data)
	return reg, nil
}

func (s *HTTPSource) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryFetchFailed.Error()), "url", url)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryFetchFailed.Error()), "url", url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		fetchErr := zerr.With(domain.ErrRegistryFetchFailed, "status_code", resp.StatusCode)
		return nil, zerr.With(fetchErr, "url", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryFetchFailed.Error()), "url", url)
	}
	return body, nil
}

// CachePath returns where the index behind ref is persisted.
func CachePath(ref domain.RegistryRef) string {
	hash := sha256.Sum256([]byte(ref.Source))
	return filepath.Join(ref.Dir, domain.DefaultRegistryCachePath(), hex.EncodeToString(hash[:])+".yaml")
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "registry-cache-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

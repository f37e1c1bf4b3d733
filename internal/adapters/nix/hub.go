// Package nix implements NixHub registry resolution and Nix shell materialization.
package nix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	nixHubAPIBase     = "https://search.devbox.sh/v2/resolve"
	httpClientTimeout = 30 * time.Second
)

var _ ports.RegistrySource = (*HubSource)(nil)

// HubSource implements ports.RegistrySource by resolving name/version pairs via the NixHub API.
// Responses are cached per name@version under the manifest's .devshell/cache/nixhub directory,
// covering every supported platform at once.
type HubSource struct {
	apiBase    string
	httpClient *http.Client
	logger     ports.Logger
}

// NewHubSource creates a new HubSource backed by the public NixHub API.
func NewHubSource(logger ports.Logger) *HubSource {
	return NewHubSourceWithClient(logger, nixHubAPIBase, &http.Client{Timeout: httpClientTimeout})
}

// NewHubSourceWithClient creates a HubSource with a custom API base and http client.
func NewHubSourceWithClient(logger ports.Logger, apiBase string, client *http.Client) *HubSource {
	return &HubSource{
		apiBase:    apiBase,
		httpClient: client,
		logger:     logger,
	}
}

// Load resolves every package in ref.Packages for platform.
// Packages NixHub has no build for on platform are left out of the registry.
func (h *HubSource) Load(ctx context.Context, ref domain.RegistryRef, platform domain.Platform) (*domain.Registry, error) {
	cacheDir := filepath.Join(ref.Dir, domain.DefaultNixHubCachePath())
	names := slices.Sorted(maps.Keys(ref.Packages))
	entries := make([]*cacheEntry, len(names))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, name := range names {
		g.Go(func() error {
			entry, err := h.resolve(groupCtx, cacheDir, name, ref.Packages[name])
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := domain.NewRegistryBuilder()
	for i, entry := range entries {
		def, ok := entry.packageDef(names[i], platform)
		if !ok {
			h.logger.Warn(fmt.Sprintf("%s@%s is not available on %s", names[i], ref.Packages[names[i]], platform))
			continue
		}
		if err := b.Add(def); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// packageDef converts the cached resolution into a definition for platform.
func (e *cacheEntry) packageDef(name string, platform domain.Platform) (domain.PackageDef, bool) {
	system, ok := e.Systems[platform.String()]
	if !ok {
		return domain.PackageDef{}, false
	}

	attrs := map[string]string{
		domain.AttrFlake: system.Installable.Ref.String(),
		domain.AttrPath:  system.Installable.AttrPath,
	}
	if e.Summary != "" {
		attrs[domain.AttrSummary] = e.Summary
	}
	for _, out := range system.Outputs {
		if out.Default && out.Path != "" {
			attrs[domain.AttrOut] = out.Path
			break
		}
	}

	return domain.PackageDef{ID: domain.NewPackageID(name), Version: e.Version, Attrs: attrs}, true
}

// resolve returns the cached resolution of name@version or queries NixHub.
func (h *HubSource) resolve(ctx context.Context, cacheDir, name, version string) (*cacheEntry, error) {
	cachePath := getCachePath(cacheDir, name, version)
	if entry, err := loadFromCache(cachePath); err == nil {
		return entry, nil
	}

	apiResponse, err := h.queryNixHub(ctx, name, version)
	if err != nil {
		return nil, err
	}

	entry := newCacheEntry(name, apiResponse)
	if err := saveToCache(cachePath, entry); err != nil {
		// The resolution is usable without the cache.
		h.logger.Warn(fmt.Sprintf("could not cache %s@%s: %v", name, version, err))
	}
	return entry, nil
}

// getHash generates a SHA-256 hash from a package name and version.
func getHash(name, version string) string {
	hash := sha256.Sum256([]byte(name + "@" + version))
	return hex.EncodeToString(hash[:])
}

// getCachePath returns the file path for the cache entry.
func getCachePath(cacheDir, name, version string) string {
	return filepath.Join(cacheDir, getHash(name, version)+".json")
}

// loadFromCache attempts to load a cached resolution.
func loadFromCache(path string) (*cacheEntry, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNixCacheReadFailed
		}
		return nil, zerr.Wrap(err, domain.ErrNixCacheReadFailed.Error())
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixCacheUnmarshalFailed.Error())
	}
	return &entry, nil
}

func newCacheEntry(name string, apiResponse *nixHubResponse) *cacheEntry {
	systems := make(map[string]systemBuild, len(apiResponse.Systems))
	for sysName, build := range apiResponse.Systems {
		if domain.Platform(sysName).Validate() == nil {
			systems[sysName] = build
		}
	}

	return &cacheEntry{
		Name:      name,
		Version:   apiResponse.Version,
		Summary:   apiResponse.Summary,
		Systems:   systems,
		Timestamp: time.Now(),
	}
}

// saveToCache saves a resolution result to the cache.
func saveToCache(path string, entry *cacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrNixCacheWriteFailed.Error())
	}

	if err := atomicWriteFile(path, data); err != nil {
		return zerr.Wrap(err, domain.ErrNixCacheWriteFailed.Error())
	}
	return nil
}

// queryNixHub queries the NixHub API to resolve a package version.
func (h *HubSource) queryNixHub(ctx context.Context, name, version string) (*nixHubResponse, error) {
	query := url.Values{"name": {name}, "version": {version}}
	reqURL := h.apiBase + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixAPIRequestFailed.Error())
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixAPIRequestFailed.Error())
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		notFoundErr := zerr.With(domain.ErrNixPackageNotFound, "package", name)
		return nil, zerr.With(notFoundErr, "version", version)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := zerr.With(domain.ErrNixAPIRequestFailed, "status_code", resp.StatusCode)
		apiErr = zerr.With(apiErr, "package", name)
		return nil, zerr.With(apiErr, "version", version)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixAPIRequestFailed.Error())
	}

	var apiResp nixHubResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, zerr.Wrap(err, domain.ErrNixAPIParseFailed.Error())
	}

	if len(apiResp.Systems) == 0 {
		noSystemsErr := zerr.With(domain.ErrNixPackageNotFound, "package", name)
		return nil, zerr.With(noSystemsErr, "version", version)
	}

	return &apiResp, nil
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "nix-cache-*.json")
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

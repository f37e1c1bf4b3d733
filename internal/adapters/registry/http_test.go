package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/devshell/internal/adapters/registry"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newIndexServer(t *testing.T, status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(sampleIndex))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_Load(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusOK)
	srv := newIndexServer(t, &status, &hits)

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	src := registry.NewHTTPSourceWithClient(mockLogger, srv.Client())
	ref := domain.RegistryRef{Source: srv.URL + "/index.yaml", Dir: t.TempDir()}

	reg, err := src.Load(context.Background(), ref, domain.PlatformX8664Linux)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "openssl"}, domain.PackageIDStrings(reg.IDs()))

	// Persisted for later offline use.
	_, err = os.Stat(registry.CachePath(ref))
	require.NoError(t, err)

	// Memoized per process: a second platform does not refetch.
	reg, err = src.Load(context.Background(), ref, domain.PlatformAarch64Darwin)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple-sdk", "openssl"}, domain.PackageIDStrings(reg.IDs()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPSource_FallsBackToDiskCache(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusOK)
	srv := newIndexServer(t, &status, &hits)

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	dir := t.TempDir()
	ref := domain.RegistryRef{Source: srv.URL + "/index.yaml", Dir: dir}

	// Warm the on-disk cache with one source instance.
	_, err := registry.NewHTTPSourceWithClient(mockLogger, srv.Client()).Load(context.Background(), ref, domain.PlatformX8664Linux)
	require.NoError(t, err)

	// A fresh process sees the server failing.
	status.Store(http.StatusInternalServerError)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	reg, err := registry.NewHTTPSourceWithClient(mockLogger, srv.Client()).Load(context.Background(), ref, domain.PlatformX8664Linux)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPSource_FetchFailureWithoutCache(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusNotFound)
	srv := newIndexServer(t, &status, &hits)

	ctrl := gomock.NewController(t)
	src := registry.NewHTTPSourceWithClient(mocks.NewMockLogger(ctrl), srv.Client())

	_, err := src.Load(context.Background(), domain.RegistryRef{Source: srv.URL, Dir: t.TempDir()}, domain.PlatformX8664Linux)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrRegistryFetchFailed.Error())
}

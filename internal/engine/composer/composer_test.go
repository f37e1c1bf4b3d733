package composer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/devshell/internal/core/ports/mocks"
	"go.trai.ch/devshell/internal/engine/composer"
	"go.uber.org/mock/gomock"
)

type composerTestMocks struct {
	source *mocks.MockRegistrySource
	tracer *mocks.MockTracer
	logger *mocks.MockLogger
}

func setupComposerTest(t *testing.T) (*composer.Composer, composerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := composerTestMocks{
		source: mocks.NewMockRegistrySource(ctrl),
		tracer: mocks.NewMockTracer(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}

	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()

	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()

	return composer.New(m.source, m.tracer, m.logger), m
}

func testManifest() *domain.Manifest {
	return &domain.Manifest{
		Registries: []domain.RegistryRef{
			{Source: "./registry.yaml"},
			{Source: "nixhub", Packages: map[string]string{"nodejs": "20"}},
		},
		Overlays: []domain.Overlay{
			setOverlay("toolchain", "rust", "1.78.0"),
		},
		Spec: domain.EnvironmentSpec{
			NativeBuildInputs: domain.NewPackageIDs([]string{"pkg-config", "rust"}),
			BuildInputs:       domain.NewPackageIDs([]string{"openssl", "nodejs"}),
			ShellHook:         "alias ls=eza",
		},
	}
}

func TestComposer_Compose(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()
	platform := domain.PlatformX8664Linux

	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[0], platform).
		Return(registry(t, def("pkg-config", "0.29.2"), def("openssl", "3.0.13")), nil)
	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[1], platform).
		Return(registry(t, def("nodejs", "20.11.1")), nil)

	resolved, err := c.Compose(context.Background(), manifest, platform)
	require.NoError(t, err)

	assert.Equal(t, platform, resolved.Platform)
	assert.Equal(t, []string{"pkg-config", "rust"}, domain.PackageIDStrings(resolved.NativeBuildInputs))
	assert.Equal(t, []string{"openssl", "nodejs"}, domain.PackageIDStrings(resolved.BuildInputs))
	assert.Equal(t, "alias ls=eza", resolved.ShellHook)
	assert.Equal(t, 4, resolved.Registry.Len())
}

func TestComposer_Compose_DuplicateAcrossSources(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()

	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[0], gomock.Any()).
		Return(registry(t, def("nodejs", "18.19.0")), nil)
	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[1], gomock.Any()).
		Return(registry(t, def("nodejs", "20.11.1")), nil)

	_, err := c.Compose(context.Background(), manifest, domain.PlatformX8664Linux)

	var dup *domain.DuplicateRegistryKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "nodejs", dup.ID.String())
	assert.Equal(t, "nixhub", dup.Source)
}

func TestComposer_Compose_SourceError(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()
	loadErr := errors.New("connection refused")

	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[0], gomock.Any()).Return(nil, loadErr)

	_, err := c.Compose(context.Background(), manifest, domain.PlatformX8664Linux)
	assert.ErrorIs(t, err, loadErr)
}

func TestComposer_Compose_Unresolved(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()

	m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.EmptyRegistry(), nil).Times(2)

	_, err := c.Compose(context.Background(), manifest, domain.PlatformX8664Linux)

	var unresolved *domain.UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"pkg-config", "openssl", "nodejs"}, unresolved.Identifiers())
}

func TestComposer_Compose_Constraints(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()
	manifest.Constraints = map[string]string{"nodejs": ">=20", "rust": "<1.70", "python": ">=3"}

	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[0], gomock.Any()).
		Return(registry(t, def("pkg-config", "0.29.2"), def("openssl", "3.0.13")), nil)
	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[1], gomock.Any()).
		Return(registry(t, def("nodejs", "20.11.1")), nil)
	m.logger.EXPECT().Warn("constraints ignored for packages not in the environment: python")

	_, err := c.Compose(context.Background(), manifest, domain.PlatformX8664Linux)

	var violationErr *domain.ConstraintViolationError
	require.ErrorAs(t, err, &violationErr)
	require.Len(t, violationErr.Violations, 1)
	assert.Equal(t, "rust", violationErr.Violations[0].ID.String())
}

func TestComposer_Compose_UnsupportedPlatform(t *testing.T) {
	c, _ := setupComposerTest(t)

	_, err := c.Compose(context.Background(), testManifest(), domain.Platform("riscv64-linux"))
	assert.ErrorContains(t, err, domain.ErrUnsupportedPlatform.Error())
}

func TestComposer_Compose_PerPlatformFanOut(t *testing.T) {
	c, m := setupComposerTest(t)
	manifest := testManifest()

	m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ref domain.RegistryRef, p domain.Platform) (*domain.Registry, error) {
			if ref.Source == "nixhub" {
				return domain.NewRegistry(def("nodejs", "20.11.1-"+p.String()))
			}
			return domain.NewRegistry(def("pkg-config", "0.29.2"), def("openssl", "3.0.13"))
		},
	).AnyTimes()

	results := make([]*domain.ResolvedEnvironment, len(domain.SupportedPlatforms))
	var wg sync.WaitGroup
	for i, p := range domain.SupportedPlatforms {
		wg.Go(func() {
			resolved, err := c.Compose(context.Background(), manifest, p)
			assert.NoError(t, err)
			results[i] = resolved
		})
	}
	wg.Wait()

	for i, p := range domain.SupportedPlatforms {
		require.NotNil(t, results[i])
		assert.Equal(t, p, results[i].Platform)
		nodejs, ok := results[i].Registry.Lookup(id("nodejs"))
		require.True(t, ok)
		assert.Equal(t, "20.11.1-"+p.String(), nodejs.Version)
	}
}

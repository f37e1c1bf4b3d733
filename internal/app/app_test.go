package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/devshell/internal/adapters/logger"
	"go.trai.ch/devshell/internal/app"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/devshell/internal/core/ports/mocks"
	"go.trai.ch/devshell/internal/engine/composer"
	"go.uber.org/mock/gomock"
)

type appTestMocks struct {
	loader       *mocks.MockManifestLoader
	source       *mocks.MockRegistrySource
	store        *mocks.MockDescriptorStore
	materializer *mocks.MockEnvironmentMaterializer
	activator    *mocks.MockActivator
	watcher      *mocks.MockWatcher
	hasher       *mocks.MockHasher
	logger       *mocks.MockLogger
}

func setupAppTest(t *testing.T) (*app.App, appTestMocks, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := appTestMocks{
		loader:       mocks.NewMockManifestLoader(ctrl),
		source:       mocks.NewMockRegistrySource(ctrl),
		store:        mocks.NewMockDescriptorStore(ctrl),
		materializer: mocks.NewMockEnvironmentMaterializer(ctrl),
		activator:    mocks.NewMockActivator(ctrl),
		watcher:      mocks.NewMockWatcher(ctrl),
		hasher:       mocks.NewMockHasher(ctrl),
		logger:       mocks.NewMockLogger(ctrl),
	}

	mockSpan := mocks.NewMockSpan(ctrl)
	mockSpan.EXPECT().End().AnyTimes()
	mockSpan.EXPECT().RecordError(gomock.Any()).AnyTimes()
	mockSpan.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, mockSpan
		},
	).AnyTimes()

	comp := composer.New(m.source, tracer, m.logger)
	out := new(bytes.Buffer)
	a := app.New(m.loader, comp, m.store, m.materializer, m.activator, m.watcher, m.hasher, tracer, m.logger).
		WithOutput(out)
	return a, m, out
}

func testManifest(t *testing.T) *domain.Manifest {
	t.Helper()
	dir := t.TempDir()
	return &domain.Manifest{
		Path:       filepath.Join(dir, domain.ManifestFileName),
		Dir:        dir,
		Registries: []domain.RegistryRef{{Source: "./registry.yaml", Dir: dir}},
		Platforms:  []domain.Platform{domain.PlatformX8664Linux, domain.PlatformAarch64Darwin},
		Spec: domain.EnvironmentSpec{
			NativeBuildInputs: domain.NewPackageIDs([]string{"go"}),
			BuildInputs:       domain.NewPackageIDs([]string{"openssl"}),
			ShellHook:         "echo ready",
		},
		Files: []string{filepath.Join(dir, domain.ManifestFileName), filepath.Join(dir, "registry.yaml")},
	}
}

func testRegistry(_ context.Context, _ domain.RegistryRef, _ domain.Platform) (*domain.Registry, error) {
	return domain.NewRegistry(
		domain.PackageDef{
			ID:      domain.NewPackageID("go"),
			Version: "1.22.3",
			Attrs:   map[string]string{domain.AttrSummary: "The Go programming language"},
		},
		domain.PackageDef{ID: domain.NewPackageID("openssl"), Version: "3.0.13"},
		domain.PackageDef{ID: domain.NewPackageID("zlib"), Version: "1.3.1"},
	)
}

func TestApp_Resolve_JSON(t *testing.T) {
	a, m, out := setupAppTest(t)
	manifest := testManifest(t)

	m.loader.EXPECT().Load(".").Return(manifest, nil)
	m.source.EXPECT().Load(gomock.Any(), manifest.Registries[0], gomock.Any()).DoAndReturn(testRegistry).Times(2)
	m.store.EXPECT().Put(manifest.Dir, manifest.Digest(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, a.Resolve(context.Background(), app.ResolveOptions{}))

	var got map[string]domain.ActivationDescriptor
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)

	for _, p := range manifest.Platforms {
		desc, ok := got[p.String()]
		require.True(t, ok, p.String())
		assert.Equal(t, p, desc.Platform)
		assert.Equal(t, []string{"go", "openssl"}, domain.PackageIDStrings(desc.PackageIDs()))
		assert.Equal(t, "echo ready", desc.ShellHook)
		assert.NotEmpty(t, desc.RegistryDigest)
	}
}

func TestApp_Resolve_PlatformOverride(t *testing.T) {
	a, m, out := setupAppTest(t)
	manifest := testManifest(t)

	m.loader.EXPECT().Load(".").Return(manifest, nil)
	m.source.EXPECT().Load(gomock.Any(), gomock.Any(), domain.PlatformAarch64Linux).DoAndReturn(testRegistry)
	m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	err := a.Resolve(context.Background(), app.ResolveOptions{
		Platforms: []domain.Platform{domain.PlatformAarch64Linux},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"aarch64-linux"`)
	assert.NotContains(t, out.String(), `"x86_64-linux"`)
}

func TestApp_Resolve_Formats(t *testing.T) {
	t.Run("nix", func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry).Times(2)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

		require.NoError(t, a.Resolve(context.Background(), app.ResolveOptions{Format: app.FormatNix}))
		assert.Equal(t, 2, strings.Count(out.String(), "mkShell {"))
		assert.Contains(t, out.String(), `system = "x86_64-linux";`)
		assert.Contains(t, out.String(), `system = "aarch64-darwin";`)
	})

	t.Run("shell", func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		manifest.Platforms = []domain.Platform{domain.PlatformX8664Linux}

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.activator.EXPECT().Render(out, gomock.Any(), gomock.Nil()).DoAndReturn(
			func(w io.Writer, desc domain.ActivationDescriptor, _ []string) error {
				_, err := io.WriteString(w, "# script for "+desc.Platform.String()+"\n")
				return err
			},
		)

		require.NoError(t, a.Resolve(context.Background(), app.ResolveOptions{Format: app.FormatShell}))
		assert.Equal(t, "# script for x86_64-linux\n", out.String())
	})

	t.Run("unknown", func(t *testing.T) {
		a, _, _ := setupAppTest(t)

		err := a.Resolve(context.Background(), app.ResolveOptions{Format: "toml"})
		assert.ErrorContains(t, err, domain.ErrInvalidOutputFormat.Error())
	})
}

func TestApp_Resolve_Offline(t *testing.T) {
	t.Run("uses stored descriptors", func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		manifest.Platforms = []domain.Platform{domain.PlatformX8664Linux}

		stored := &domain.ActivationDescriptor{
			Platform:          domain.PlatformX8664Linux,
			Packages:          []domain.PackageDef{{ID: domain.NewPackageID("go"), Version: "1.21.0"}},
			NativeBuildInputs: domain.NewPackageIDs([]string{"go"}),
			BuildInputs:       []domain.PackageID{},
			RegistryDigest:    "cafebabe",
		}
		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.store.EXPECT().Get(manifest.Dir, manifest.Digest(), domain.PlatformX8664Linux).Return(stored, nil)

		require.NoError(t, a.Resolve(context.Background(), app.ResolveOptions{Offline: true}))
		assert.Contains(t, out.String(), `"1.21.0"`)
		assert.Contains(t, out.String(), `"cafebabe"`)
	})

	t.Run("fails without stored descriptors", func(t *testing.T) {
		a, m, _ := setupAppTest(t)
		manifest := testManifest(t)

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.store.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

		err := a.Resolve(context.Background(), app.ResolveOptions{Offline: true})
		assert.ErrorContains(t, err, domain.ErrDescriptorNotCached.Error())
	})
}

func TestApp_Resolve_StoreFailureIsNotFatal(t *testing.T) {
	a, m, out := setupAppTest(t)
	manifest := testManifest(t)
	manifest.Platforms = []domain.Platform{domain.PlatformX8664Linux}

	m.loader.EXPECT().Load(".").Return(manifest, nil)
	m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
	m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	m.logger.EXPECT().Warn("failed to store environment for x86_64-linux: disk full")

	require.NoError(t, a.Resolve(context.Background(), app.ResolveOptions{}))
	assert.Contains(t, out.String(), `"x86_64-linux"`)
}

func TestApp_Resolve_Errors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		a, m, _ := setupAppTest(t)
		m.loader.EXPECT().Load(".").Return(nil, domain.ErrConfigNotFound)

		err := a.Resolve(context.Background(), app.ResolveOptions{})
		require.ErrorIs(t, err, domain.ErrConfigNotFound)
		assert.ErrorContains(t, err, "failed to load configuration")
	})

	t.Run("unresolved packages", func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		manifest.Spec.BuildInputs = domain.NewPackageIDs([]string{"openssl", "libffi"})

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry).AnyTimes()

		err := a.Resolve(context.Background(), app.ResolveOptions{})

		var unresolved *domain.UnresolvedReferenceError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, []string{"libffi"}, unresolved.Identifiers())
		assert.Empty(t, out.String(), "nothing is printed for a failed resolution")
	})
}

func TestApp_Shell(t *testing.T) {
	current := domain.CurrentPlatform()

	t.Run("materializes and activates", func(t *testing.T) {
		a, m, _ := setupAppTest(t)
		manifest := testManifest(t)
		env := []string{"PATH=/nix/store/aaa-go/bin"}

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), current).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.materializer.EXPECT().Materialize(gomock.Any(), manifest.Dir, gomock.Any()).Return(env, nil)
		m.activator.EXPECT().Activate(gomock.Any(), manifest.Dir, gomock.Any(), env).DoAndReturn(
			func(_ context.Context, _ string, desc domain.ActivationDescriptor, _ []string) error {
				assert.Equal(t, current, desc.Platform)
				assert.Equal(t, "echo ready", desc.ShellHook)
				return nil
			},
		)

		require.NoError(t, a.Shell(context.Background(), app.ShellOptions{}))
	})

	t.Run("skips materialization", func(t *testing.T) {
		a, m, _ := setupAppTest(t)
		manifest := testManifest(t)

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.activator.EXPECT().Activate(gomock.Any(), manifest.Dir, gomock.Any(), gomock.Nil()).Return(nil)

		require.NoError(t, a.Shell(context.Background(), app.ShellOptions{NoMaterialize: true}))
	})

	t.Run("prints the script for another platform", func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		other := otherPlatform(current)

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), other).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.activator.EXPECT().Render(out, gomock.Any(), gomock.Nil()).Return(nil)

		require.NoError(t, a.Shell(context.Background(), app.ShellOptions{
			Platform:      other,
			NoMaterialize: true,
			Print:         true,
		}))
	})

	t.Run("refuses to activate another platform", func(t *testing.T) {
		a, _, _ := setupAppTest(t)

		err := a.Shell(context.Background(), app.ShellOptions{Platform: otherPlatform(current)})
		assert.ErrorContains(t, err, domain.ErrForeignPlatform.Error())
	})

	t.Run("materialization failure", func(t *testing.T) {
		a, m, _ := setupAppTest(t)
		manifest := testManifest(t)

		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.materializer.EXPECT().Materialize(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrNixEvaluationFailed)

		err := a.Shell(context.Background(), app.ShellOptions{})
		assert.ErrorIs(t, err, domain.ErrNixEvaluationFailed)
	})
}

func otherPlatform(p domain.Platform) domain.Platform {
	for _, candidate := range domain.SupportedPlatforms {
		if candidate != p {
			return candidate
		}
	}
	return p
}

func TestApp_Show(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	a, m, out := setupAppTest(t)
	manifest := testManifest(t)

	var stored domain.ActivationDescriptor
	m.loader.EXPECT().Load(".").Return(manifest, nil)
	m.source.EXPECT().Load(gomock.Any(), gomock.Any(), domain.PlatformX8664Linux).DoAndReturn(testRegistry)
	m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_, _ string, desc domain.ActivationDescriptor) error {
			stored = desc
			return nil
		},
	)

	require.NoError(t, a.Show(context.Background(), app.ShowOptions{Platform: domain.PlatformX8664Linux}))

	got := strings.ReplaceAll(out.String(), stored.RegistryDigest, "<digest>")
	g := goldie.New(t)
	g.Assert(t, "show_summary", []byte(got))
}

func TestApp_Watch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
		m.loader.EXPECT().Load(".").Return(manifest, nil).Times(2)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry).Times(2)

		puts := 0
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_, _ string, _ domain.ActivationDescriptor) error {
				puts++
				if puts == 2 {
					// The re-resolution after the change is the last one this test needs.
					cancel()
				}
				return nil
			},
		).Times(2)

		gomock.InOrder(
			m.hasher.EXPECT().HashFiles(manifest.Files).Return("before", nil),
			m.hasher.EXPECT().HashFiles(manifest.Files).Return("after", nil),
		)
		m.watcher.EXPECT().Start(gomock.Any(), manifest.Files).Return(nil)
		m.watcher.EXPECT().Stop().Return(nil)
		m.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			for _, op := range []ports.WatchOp{ports.OpWrite, ports.OpWrite, ports.OpRename} {
				if !yield(ports.WatchEvent{Path: manifest.Files[0], Operation: op}) {
					return
				}
			}
		}))

		err := a.Watch(ctx, app.WatchOptions{Platforms: []domain.Platform{domain.PlatformX8664Linux}})
		require.NoError(t, err)

		// One resolution at start and exactly one for the burst of events.
		assert.Equal(t, 2, strings.Count(out.String(), `"nativeBuildInputs"`))
	})
}

func TestApp_Watch_KeepsGoingAfterErrors(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
		gomock.InOrder(
			m.loader.EXPECT().Load(".").Return(manifest, nil),
			m.loader.EXPECT().Load(".").Return(nil, domain.ErrConfigParseFailed),
		)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
			assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
			cancel()
		})

		gomock.InOrder(
			m.hasher.EXPECT().HashFiles(manifest.Files).Return("before", nil),
			m.hasher.EXPECT().HashFiles(manifest.Files).Return("after", nil),
		)
		m.watcher.EXPECT().Start(gomock.Any(), manifest.Files).Return(nil)
		m.watcher.EXPECT().Stop().Return(nil)
		m.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			yield(ports.WatchEvent{Path: manifest.Files[0], Operation: ports.OpWrite})
		}))

		err := a.Watch(ctx, app.WatchOptions{Platforms: []domain.Platform{domain.PlatformX8664Linux}})
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out.String(), `"nativeBuildInputs"`))
	})
}

func TestApp_Watch_SkipsUnchangedContent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, m, out := setupAppTest(t)
		manifest := testManifest(t)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
		m.loader.EXPECT().Load(".").Return(manifest, nil)
		m.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(testRegistry)
		m.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		gomock.InOrder(
			m.hasher.EXPECT().HashFiles(manifest.Files).Return("same", nil),
			m.hasher.EXPECT().HashFiles(manifest.Files).DoAndReturn(func(_ []string) (string, error) {
				cancel()
				return "same", nil
			}),
		)
		m.watcher.EXPECT().Start(gomock.Any(), manifest.Files).Return(nil)
		m.watcher.EXPECT().Stop().Return(nil)
		m.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			yield(ports.WatchEvent{Path: manifest.Files[0], Operation: ports.OpWrite})
		}))

		err := a.Watch(ctx, app.WatchOptions{Platforms: []domain.Platform{domain.PlatformX8664Linux}})
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out.String(), `"nativeBuildInputs"`))
	})
}

func TestApp_Clean(t *testing.T) {
	setup := func(t *testing.T) (*app.App, appTestMocks, string) {
		t.Helper()
		a, m, _ := setupAppTest(t)
		root := t.TempDir()
		for _, dir := range []string{
			domain.DefaultStorePath(),
			domain.DefaultRegistryCachePath(),
			domain.DefaultNixHubCachePath(),
			domain.DefaultEnvCachePath(),
		} {
			require.NoError(t, os.MkdirAll(filepath.Join(root, dir), domain.DirPerm))
		}
		m.loader.EXPECT().DiscoverRoot(".").Return(root, nil)
		m.logger.EXPECT().Info(gomock.Any()).AnyTimes()
		return a, m, root
	}

	t.Run("store only", func(t *testing.T) {
		a, _, root := setup(t)

		require.NoError(t, a.Clean(context.Background(), app.CleanOptions{Store: true}))
		assert.NoDirExists(t, filepath.Join(root, domain.DefaultStorePath()))
		assert.DirExists(t, filepath.Join(root, domain.DefaultNixHubCachePath()))
	})

	t.Run("everything", func(t *testing.T) {
		a, _, root := setup(t)

		require.NoError(t, a.Clean(context.Background(), app.CleanOptions{Store: true, Cache: true}))
		assert.NoDirExists(t, filepath.Join(root, domain.DefaultStorePath()))
		assert.NoDirExists(t, filepath.Join(root, domain.DefaultRegistryCachePath()))
		assert.NoDirExists(t, filepath.Join(root, domain.DefaultNixHubCachePath()))
		assert.NoDirExists(t, filepath.Join(root, domain.DefaultEnvCachePath()))
	})
}

func TestApp_Configure(t *testing.T) {
	newApp := func(log ports.Logger) *app.App {
		ctrl := gomock.NewController(t)
		return app.New(
			mocks.NewMockManifestLoader(ctrl), nil,
			mocks.NewMockDescriptorStore(ctrl), mocks.NewMockEnvironmentMaterializer(ctrl),
			mocks.NewMockActivator(ctrl), mocks.NewMockWatcher(ctrl),
			mocks.NewMockHasher(ctrl), mocks.NewMockTracer(ctrl), log,
		)
	}

	t.Run("json logs", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.New()
		log.SetOutput(&buf)

		require.NoError(t, newApp(log).Configure(app.Settings{LogFormat: app.LogFormatJSON}))
		log.Info("resolved")
		assert.Contains(t, buf.String(), `"msg":"resolved"`)
	})

	t.Run("unknown log format", func(t *testing.T) {
		err := newApp(logger.New()).Configure(app.Settings{LogFormat: "xml"})
		assert.ErrorContains(t, err, domain.ErrInvalidLogFormat.Error())
	})
}

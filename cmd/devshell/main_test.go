package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/devshell/internal/app"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports/mocks"
	"go.trai.ch/devshell/internal/engine/composer"
	"go.uber.org/mock/gomock"
)

type testMocks struct {
	loader    *mocks.MockManifestLoader
	store     *mocks.MockDescriptorStore
	activator *mocks.MockActivator
	logger    *mocks.MockLogger
	tracer    *mocks.MockTracer
}

func newTestApp(t *testing.T) (*app.App, testMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := testMocks{
		loader:    mocks.NewMockManifestLoader(ctrl),
		store:     mocks.NewMockDescriptorStore(ctrl),
		activator: mocks.NewMockActivator(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		tracer:    mocks.NewMockTracer(ctrl),
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).Return(context.Background(), span).AnyTimes()
	m.tracer.EXPECT().Shutdown(gomock.Any()).Return(nil).AnyTimes()

	source := mocks.NewMockRegistrySource(ctrl)
	application := app.New(
		m.loader,
		composer.New(source, m.tracer, m.logger),
		m.store,
		mocks.NewMockEnvironmentMaterializer(ctrl),
		m.activator,
		mocks.NewMockWatcher(ctrl),
		mocks.NewMockHasher(ctrl),
		m.tracer,
		m.logger,
	).WithOutput(io.Discard)
	return application, m
}

func provide(a *app.App, m testMocks) ComponentProvider {
	return func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: a, Logger: m.logger, Tracer: m.tracer}, func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	application, m := newTestApp(t)

	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), provide(application, m))
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	application, m := newTestApp(t)

	m.loader.EXPECT().Load(".").Return(nil, errors.New("load failed"))
	m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorContains(t, err, "load failed")
	})

	exitCode := run(context.Background(), []string{"resolve"}, new(bytes.Buffer), provide(application, m))
	assert.Equal(t, 1, exitCode)
}

// TestRun_ShellExitCode verifies that the activated shell's exit status becomes devshell's.
func TestRun_ShellExitCode(t *testing.T) {
	application, m := newTestApp(t)

	manifest := &domain.Manifest{Dir: t.TempDir()}
	m.loader.EXPECT().Load(".").Return(manifest, nil)
	m.activator.EXPECT().Activate(gomock.Any(), manifest.Dir, gomock.Any(), gomock.Nil()).
		Return(&domain.ShellExitError{Code: 7})

	m.store.EXPECT().Get(manifest.Dir, manifest.Digest(), domain.CurrentPlatform()).
		Return(&domain.ActivationDescriptor{Platform: domain.CurrentPlatform()}, nil)

	args := []string{"shell", "--offline", "--no-materialize"}
	exitCode := run(context.Background(), args, new(bytes.Buffer), provide(application, m))
	assert.Equal(t, 7, exitCode)
}

// TestRun_Signal verifies that the context is canceled on signal.
func TestRun_Signal(t *testing.T) {
	application, m := newTestApp(t)

	blockCh := make(chan struct{})
	m.loader.EXPECT().Load(gomock.Any()).DoAndReturn(func(_ string) (*domain.Manifest, error) {
		select {
		case <-blockCh:
			return nil, context.Canceled
		case <-time.After(5 * time.Second):
			return nil, errors.New("timeout in mock")
		}
	})
	m.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan int)

	go func() {
		errCh <- run(ctx, []string{"resolve"}, io.Discard, provide(application, m))
	}()

	// Wait a bit to ensure run() reaches Load()
	time.Sleep(100 * time.Millisecond)

	cancel()
	close(blockCh)

	select {
	case ret := <-errCh:
		assert.NotEqual(t, 0, ret)
	case <-time.After(2 * time.Second):
		t.Fatal("TestRun_Signal timed out waiting for run() to return")
	}
}

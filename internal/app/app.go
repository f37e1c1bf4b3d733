// Package app implements the application layer for devshell.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/devshell/internal/adapters/nix"     //nolint:depguard // Expression rendering is a pure function
	"go.trai.ch/devshell/internal/adapters/watcher" //nolint:depguard // Debouncer is a pure helper
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/devshell/internal/engine/composer"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Output formats understood by Resolve and Watch.
const (
	FormatJSON  = "json"
	FormatShell = "shell"
	FormatNix   = "nix"
)

// Log formats understood by Configure.
const (
	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

// App represents the main application logic.
type App struct {
	loader       ports.ManifestLoader
	composer     *composer.Composer
	store        ports.DescriptorStore
	materializer ports.EnvironmentMaterializer
	activator    ports.Activator
	watcher      ports.Watcher
	hasher       ports.Hasher
	tracer       ports.Tracer
	logger       ports.Logger
	stdout       io.Writer
	dir          string
	debounce     time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ManifestLoader,
	comp *composer.Composer,
	store ports.DescriptorStore,
	materializer ports.EnvironmentMaterializer,
	activator ports.Activator,
	w ports.Watcher,
	hasher ports.Hasher,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	return &App{
		loader:       loader,
		composer:     comp,
		store:        store,
		materializer: materializer,
		activator:    activator,
		watcher:      w,
		hasher:       hasher,
		tracer:       tracer,
		logger:       log,
		stdout:       os.Stdout,
		dir:          ".",
		debounce:     watcher.DefaultDebounceWindow,
	}
}

// WithOutput sets the writer command output is printed to.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// WithDir sets the directory manifest discovery starts from.
func (a *App) WithDir(dir string) *App {
	a.dir = dir
	return a
}

// WithDebounce sets the window Watch waits for changes to settle.
func (a *App) WithDebounce(d time.Duration) *App {
	a.debounce = d
	return a
}

// Settings are the tool-wide settings shared by every command.
type Settings struct {
	LogFormat string
	Verbose   bool
	Trace     bool
	// TraceOutput receives exported spans when Trace is set.
	TraceOutput io.Writer
}

// Configure applies tool-wide settings to the logger and tracer.
func (a *App) Configure(s Settings) error {
	var jsonLogs bool
	switch s.LogFormat {
	case "", LogFormatPretty:
	case LogFormatJSON:
		jsonLogs = true
	default:
		return zerr.With(domain.ErrInvalidLogFormat, "format", s.LogFormat)
	}

	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(jsonLogs)
	}
	if l, ok := a.logger.(interface{ SetVerbose(bool) }); ok {
		l.SetVerbose(s.Verbose)
	}

	if !s.Trace {
		return nil
	}
	t, ok := a.tracer.(interface{ EnableExport(io.Writer) error })
	if !ok {
		return nil
	}
	out := s.TraceOutput
	if out == nil {
		out = os.Stderr
	}
	return t.EnableExport(out)
}

// ResolveOptions configuration for the Resolve method.
type ResolveOptions struct {
	// Platforms overrides the manifest's platforms when non-empty.
	Platforms []domain.Platform
	Format    string
	// Offline reads descriptors from the store instead of loading registries.
	Offline bool
}

// Resolve composes the environment for every target platform and prints it.
func (a *App) Resolve(ctx context.Context, opts ResolveOptions) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	ctx, span := a.tracer.Start(ctx, "devshell resolve")
	defer span.End()

	m, err := a.load()
	if err != nil {
		span.RecordError(err)
		return err
	}

	descs, err := a.descriptors(ctx, m, targetPlatforms(m, opts.Platforms), opts.Offline)
	if err != nil {
		span.RecordError(err)
		return err
	}

	return a.write(opts.Format, descs)
}

// ShellOptions configuration for the Shell method.
type ShellOptions struct {
	// Platform defaults to the current platform.
	Platform domain.Platform
	Offline  bool
	// NoMaterialize skips Nix and activates with only the devshell variables and the hook.
	NoMaterialize bool
	// Print writes the activation script instead of starting a shell.
	Print bool
}

// Shell enters the environment for one platform.
func (a *App) Shell(ctx context.Context, opts ShellOptions) error {
	platform := opts.Platform
	if platform == "" {
		platform = domain.CurrentPlatform()
	}
	if !opts.Print && platform != domain.CurrentPlatform() {
		return zerr.With(domain.ErrForeignPlatform, "platform", platform.String())
	}

	ctx, span := a.tracer.Start(ctx, "devshell shell", ports.WithAttribute("devshell.platform", platform.String()))
	defer span.End()

	m, err := a.load()
	if err != nil {
		span.RecordError(err)
		return err
	}

	desc, err := a.descriptor(ctx, m, platform, opts.Offline)
	if err != nil {
		span.RecordError(err)
		return err
	}

	var env []string
	if !opts.NoMaterialize {
		env, err = a.materializer.Materialize(ctx, m.Dir, desc)
		if err != nil {
			span.RecordError(err)
			return err
		}
	}

	if opts.Print {
		return a.activator.Render(a.stdout, desc, env)
	}
	return a.activator.Activate(ctx, m.Dir, desc, env)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Store bool
	Cache bool
}

// Clean removes stored descriptors and caches next to the manifest.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	root, err := a.loader.DiscoverRoot(a.dir)
	if err != nil {
		root = a.dir
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(filepath.Join(root, path)); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Store {
		remove(domain.DefaultStorePath(), "environment store")
	}

	if options.Cache {
		remove(domain.DefaultRegistryCachePath(), "registry cache")
		remove(domain.DefaultNixHubCachePath(), "nixhub cache")
		remove(domain.DefaultEnvCachePath(), "environment cache")
	}

	return errs
}

func (a *App) load() (*domain.Manifest, error) {
	m, err := a.loader.Load(a.dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return m, nil
}

// descriptors resolves every platform concurrently. Results keep the order of platforms.
func (a *App) descriptors(
	ctx context.Context,
	m *domain.Manifest,
	platforms []domain.Platform,
	offline bool,
) ([]domain.ActivationDescriptor, error) {
	out := make([]domain.ActivationDescriptor, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range platforms {
		g.Go(func() error {
			desc, err := a.descriptor(gctx, m, p, offline)
			if err != nil {
				return err
			}
			out[i] = desc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *App) descriptor(
	ctx context.Context,
	m *domain.Manifest,
	platform domain.Platform,
	offline bool,
) (domain.ActivationDescriptor, error) {
	if err := platform.Validate(); err != nil {
		return domain.ActivationDescriptor{}, err
	}

	if offline {
		desc, err := a.store.Get(m.Dir, m.Digest(), platform)
		if err != nil {
			return domain.ActivationDescriptor{}, err
		}
		if desc == nil {
			return domain.ActivationDescriptor{}, zerr.With(domain.ErrDescriptorNotCached, "platform", platform.String())
		}
		return *desc, nil
	}

	resolved, err := a.composer.Compose(ctx, m, platform)
	if err != nil {
		return domain.ActivationDescriptor{}, err
	}

	desc := composer.Assemble(resolved)
	if err := a.store.Put(m.Dir, m.Digest(), desc); err != nil {
		// The descriptor is still valid; only --offline loses it.
		a.logger.Warn(fmt.Sprintf("failed to store environment for %s: %v", platform, err))
	}
	return desc, nil
}

func (a *App) write(format string, descs []domain.ActivationDescriptor) error {
	switch format {
	case FormatShell:
		for i, desc := range descs {
			if i > 0 {
				_, _ = fmt.Fprintln(a.stdout)
			}
			if err := a.activator.Render(a.stdout, desc, nil); err != nil {
				return err
			}
		}
	case FormatNix:
		for i, desc := range descs {
			if i > 0 {
				_, _ = fmt.Fprintln(a.stdout)
			}
			if _, err := io.WriteString(a.stdout, nix.GenerateExpression(desc)); err != nil {
				return zerr.Wrap(err, "failed to write nix expression")
			}
		}
	default:
		byPlatform := make(map[string]domain.ActivationDescriptor, len(descs))
		for _, desc := range descs {
			byPlatform[desc.Platform.String()] = desc
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(byPlatform); err != nil {
			return zerr.Wrap(err, "failed to encode descriptors")
		}
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "", FormatJSON, FormatShell, FormatNix:
		return nil
	default:
		return zerr.With(domain.ErrInvalidOutputFormat, "format", format)
	}
}

func targetPlatforms(m *domain.Manifest, requested []domain.Platform) []domain.Platform {
	if len(requested) > 0 {
		return requested
	}
	return m.TargetPlatforms()
}

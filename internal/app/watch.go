package app

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/devshell/internal/adapters/watcher" //nolint:depguard // Debouncer is a pure helper
	"go.trai.ch/devshell/internal/core/domain"
)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	Platforms []domain.Platform
	Format    string
}

// Watch resolves once, then again each time a file the manifest was assembled
// from changes. Resolution errors are logged and watching continues.
// It returns when ctx is canceled.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	m, err := a.load()
	if err != nil {
		return err
	}
	a.emit(ctx, m, opts)

	if err := a.watcher.Start(ctx, m.Files); err != nil {
		return err
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	changes := make(chan []string, 1)
	debouncer := watcher.NewDebouncer(a.debounce, func(paths []string) {
		// A pending batch already triggers a full reload.
		select {
		case changes <- paths:
		default:
		}
	})
	defer debouncer.Stop()

	go func() {
		for event := range a.watcher.Events() {
			debouncer.Add(event.Path)
		}
	}()

	watched := slices.Clone(m.Files)
	fingerprint := a.fingerprint(watched)
	a.logger.Info(fmt.Sprintf("watching %d files for changes", len(watched)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			current := a.fingerprint(watched)
			if current != "" && current == fingerprint {
				continue
			}
			fingerprint = current
			a.logger.Info("changed: " + strings.Join(relativeTo(m.Dir, paths), ", "))

			next, err := a.load()
			if err != nil {
				a.logger.Error(err)
				continue
			}
			if added := newFiles(watched, next.Files); len(added) > 0 {
				a.logger.Warn("not watching new files until restart: " + strings.Join(relativeTo(next.Dir, added), ", "))
			}
			a.emit(ctx, next, opts)
		}
	}
}

func (a *App) emit(ctx context.Context, m *domain.Manifest, opts WatchOptions) {
	ctx, span := a.tracer.Start(ctx, "devshell watch")
	defer span.End()

	descs, err := a.descriptors(ctx, m, targetPlatforms(m, opts.Platforms), false)
	if err != nil {
		span.RecordError(err)
		a.logger.Error(err)
		return
	}
	if err := a.write(opts.Format, descs); err != nil {
		a.logger.Error(err)
	}
}

// fingerprint hashes the watched files. It returns "" when hashing fails,
// which never matches a previous fingerprint.
func (a *App) fingerprint(files []string) string {
	digest, err := a.hasher.HashFiles(files)
	if err != nil {
		a.logger.Warn("failed to hash watched files: " + err.Error())
		return ""
	}
	return digest
}

func newFiles(watched, files []string) []string {
	var added []string
	for _, f := range files {
		if !slices.Contains(watched, f) {
			added = append(added, f)
		}
	}
	return added
}

func relativeTo(dir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		out[i] = rel
	}
	return out
}

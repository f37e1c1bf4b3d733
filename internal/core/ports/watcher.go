package ports

import (
	"context"
	"iter"
)

// WatchOp is the kind of change seen on a watched manifest, registry or overlay file.
type WatchOp uint8

// Changes reported by a Watcher. Chmod-only events are never reported.
const (
	OpCreate WatchOp = iota
	OpWrite
	OpRemove
	OpRename
)

// WatchEvent is one change to a file the environment was composed from.
type WatchEvent struct {
	// Path is absolute.
	Path      string
	Operation WatchOp
}

// Watcher reports changes to a fixed set of files.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start watches files until ctx is canceled or Stop is called.
	// Editors that replace files on save are followed through their parent directories.
	Start(ctx context.Context, files []string) error
	Stop() error
	// Events yields changes until the watcher stops.
	Events() iter.Seq[WatchEvent]
}

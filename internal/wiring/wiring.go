// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/devshell/internal/adapters/cas"
	_ "go.trai.ch/devshell/internal/adapters/config"
	_ "go.trai.ch/devshell/internal/adapters/fs"
	_ "go.trai.ch/devshell/internal/adapters/logger"
	_ "go.trai.ch/devshell/internal/adapters/nix"
	_ "go.trai.ch/devshell/internal/adapters/registry"
	_ "go.trai.ch/devshell/internal/adapters/shell"
	_ "go.trai.ch/devshell/internal/adapters/telemetry"
	_ "go.trai.ch/devshell/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/devshell/internal/app"
	_ "go.trai.ch/devshell/internal/engine/composer"
)

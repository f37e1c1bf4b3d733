package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/devshell/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/nix"       //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/devshell/internal/engine/composer"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components holds what the entry point needs beyond the App itself.
type Components struct {
	App    *App
	Logger ports.Logger
	Tracer ports.Tracer
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			composer.NodeID,
			cas.NodeID,
			nix.MaterializerNodeID,
			shell.NodeID,
			watcher.NodeID,
			fs.HasherNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{
				App:    app,
				Logger: log,
				Tracer: tracer,
			}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	comp, err := graft.Dep[*composer.Composer](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.DescriptorStore](ctx)
	if err != nil {
		return nil, err
	}

	materializer, err := graft.Dep[ports.EnvironmentMaterializer](ctx)
	if err != nil {
		return nil, err
	}

	activator, err := graft.Dep[ports.Activator](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, comp, store, materializer, activator, w, hasher, tracer, log), nil
}

package composer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/devshell/internal/adapters/logger"    //nolint:depguard // Wired in engine layer
	"go.trai.ch/devshell/internal/adapters/registry"  //nolint:depguard // Wired in engine layer
	"go.trai.ch/devshell/internal/adapters/telemetry" //nolint:depguard // Wired in engine layer
	"go.trai.ch/devshell/internal/core/ports"
)

// NodeID is the unique identifier for the composer Graft node.
const NodeID graft.ID = "engine.composer"

func init() {
	graft.Register(graft.Node[*Composer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			registry.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Composer, error) {
			source, err := graft.Dep[ports.RegistrySource](ctx)
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

			return New(source, tracer, log), nil
		},
	})
}

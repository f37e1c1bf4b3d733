package nix

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/devshell/internal/adapters/logger"
	"go.trai.ch/devshell/internal/core/ports"
)

const (
	// HubNodeID is the unique identifier for the NixHub registry source Graft node.
	HubNodeID graft.ID = "adapter.nix.hub"
	// MaterializerNodeID is the unique identifier for the environment materializer Graft node.
	MaterializerNodeID graft.ID = "adapter.nix.materializer"
)

func init() {
	graft.Register(graft.Node[*HubSource]{
		ID:        HubNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*HubSource, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewHubSource(log), nil
		},
	})

	graft.Register(graft.Node[ports.EnvironmentMaterializer]{
		ID:        MaterializerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.EnvironmentMaterializer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewMaterializer(log), nil
		},
	})
}

package registry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/devshell/internal/adapters/logger"
	"go.trai.ch/devshell/internal/adapters/nix"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
)

// NodeID is the unique identifier for the registry router Graft node.
const NodeID graft.ID = "adapter.registry"

func init() {
	graft.Register(graft.Node[ports.RegistrySource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, nix.HubNodeID},
		Run: func(ctx context.Context) (ports.RegistrySource, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			hub, err := graft.Dep[*nix.HubSource](ctx)
			if err != nil {
				return nil, err
			}

			return NewRouter(map[domain.RegistryKind]ports.RegistrySource{
				domain.RegistryKindFile:   NewFileSource(),
				domain.RegistryKindHTTP:   NewHTTPSource(log),
				domain.RegistryKindNixHub: hub,
			}), nil
		},
	})
}

package authtree_test

import (
	"context"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

func registryDescriptor(nodeType string, err error) registry.Descriptor {
	return registry.Descriptor{
		Type: nodeType,
		New: func(domain.NodeDecl) (domain.Node, error) {
			return domain.NodeFunc(func(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
				return domain.Action{}, err
			}), nil
		},
		Outcomes: func(domain.NodeDecl) ([]string, error) { return []string{"true", "false"}, nil },
	}
}

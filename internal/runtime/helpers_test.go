package runtime_test

import (
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

func registryDescriptor(nodeType string, fn domain.NodeFunc) registry.Descriptor {
	return registry.Descriptor{
		Type: nodeType,
		New:  func(domain.NodeDecl) (domain.Node, error) { return fn, nil },
	}
}

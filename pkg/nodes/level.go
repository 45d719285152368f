package nodes

import (
	"context"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

// ModifyAuthLevelConfig configures a ModifyAuthLevel node.
type ModifyAuthLevelConfig struct {
	Value int `json:"value"`
}

// ModifyAuthLevel adds Value to the shared auth level. An absent level counts as
// zero and the result is not clamped.
type ModifyAuthLevel struct {
	cfg ModifyAuthLevelConfig
}

// NewModifyAuthLevel decodes decl into a ModifyAuthLevel node.
func NewModifyAuthLevel(decl domain.NodeDecl) (*ModifyAuthLevel, error) {
	cfg, err := parseModifyAuthLevelConfig(decl)
	if err != nil {
		return nil, err
	}
	return &ModifyAuthLevel{cfg: cfg}, nil
}

func parseModifyAuthLevelConfig(decl domain.NodeDecl) (ModifyAuthLevelConfig, error) {
	var cfg ModifyAuthLevelConfig
	err := registry.Decode(decl.Config, &cfg)
	return cfg, err
}

// Process implements domain.Node.
func (n *ModifyAuthLevel) Process(_ context.Context, _ *domain.Request, state domain.NodeState) (domain.Action, error) {
	level := 0
	if raw, ok := state.Shared(domain.KeyAuthLevel); ok {
		level, _ = domain.AsInt(raw)
	}
	return domain.Goto("outcome").WithShared(domain.KeyAuthLevel, level+n.cfg.Value), nil
}

func modifyAuthLevelDelta(decl domain.NodeDecl) (int, bool) {
	cfg, err := parseModifyAuthLevelConfig(decl)
	if err != nil {
		return 0, false
	}
	return cfg.Value, true
}

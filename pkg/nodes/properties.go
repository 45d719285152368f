package nodes

import (
	"context"
	"log/slog"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

// SessionPropertiesConfig configures a SetSessionProperties node.
type SessionPropertiesConfig struct {
	Properties map[string]string `json:"properties"`
}

// SetSessionProperties attaches fixed properties to the session created on success.
type SetSessionProperties struct {
	props map[string]string
}

// NewSetSessionProperties decodes decl into a SetSessionProperties node.
func NewSetSessionProperties(decl domain.NodeDecl) (*SetSessionProperties, error) {
	cfg, err := parseSessionPropertiesConfig(decl)
	if err != nil {
		return nil, err
	}
	return &SetSessionProperties{props: cfg.Properties}, nil
}

func parseSessionPropertiesConfig(decl domain.NodeDecl) (SessionPropertiesConfig, error) {
	var cfg SessionPropertiesConfig
	err := registry.Decode(decl.Config, &cfg)
	return cfg, err
}

// Process implements domain.Node.
func (n *SetSessionProperties) Process(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
	action := domain.Goto("outcome")
	for k, v := range n.props {
		action = action.WithSessionProperty(k, v)
	}
	return action, nil
}

// LoginAudit registers a tree hook that logs the result of the whole evaluation.
type LoginAudit struct {
	logger *slog.Logger
}

// NewLoginAudit decodes decl into a LoginAudit node.
func NewLoginAudit(decl domain.NodeDecl, logger *slog.Logger) (*LoginAudit, error) {
	if err := checkEmptyConfig(decl); err != nil {
		return nil, err
	}
	return &LoginAudit{logger: logger}, nil
}

// Process implements domain.Node.
func (n *LoginAudit) Process(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
	return domain.Goto("outcome").WithTreeHook(), nil
}

// OnTreeComplete implements domain.TreeHook.
func (n *LoginAudit) OnTreeComplete(ctx context.Context, hc domain.HookContext) error {
	n.logger.InfoContext(ctx, "authentication finished",
		"tree", hc.Tree,
		"node_id", hc.NodeID,
		"result", string(hc.Result),
		"identity", hc.State.Identity,
		"auth_level", hc.State.AuthLevel(),
		"visited", hc.State.Visited)
	return nil
}

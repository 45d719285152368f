package nodes

import (
	"context"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

// CollectorConfig configures the username and password collectors.
type CollectorConfig struct {
	Prompt string `json:"prompt"`
}

// UsernameCollector asks for a username and stores it in shared state.
type UsernameCollector struct {
	prompt string
}

// NewUsernameCollector decodes decl into a UsernameCollector.
func NewUsernameCollector(decl domain.NodeDecl) (*UsernameCollector, error) {
	cfg, err := parseCollectorConfig(decl, "User Name")
	if err != nil {
		return nil, err
	}
	return &UsernameCollector{prompt: cfg.Prompt}, nil
}

func parseCollectorConfig(decl domain.NodeDecl, prompt string) (CollectorConfig, error) {
	cfg := CollectorConfig{Prompt: prompt}
	err := registry.Decode(decl.Config, &cfg)
	return cfg, err
}

// Process implements domain.Node.
func (n *UsernameCollector) Process(_ context.Context, req *domain.Request, _ domain.NodeState) (domain.Action, error) {
	if cb, ok := req.Callback(domain.CallbackName); ok {
		if name, ok := cb.StringValue(); ok && name != "" {
			return domain.Goto("outcome").WithShared(domain.KeyUsername, name), nil
		}
	}
	return domain.Send(domain.NameCallback(n.prompt)), nil
}

// PasswordCollector asks for a password and keeps it in transient state only.
type PasswordCollector struct {
	prompt string
}

// NewPasswordCollector decodes decl into a PasswordCollector.
func NewPasswordCollector(decl domain.NodeDecl) (*PasswordCollector, error) {
	cfg, err := parseCollectorConfig(decl, "Password")
	if err != nil {
		return nil, err
	}
	return &PasswordCollector{prompt: cfg.Prompt}, nil
}

// Process implements domain.Node.
func (n *PasswordCollector) Process(_ context.Context, req *domain.Request, _ domain.NodeState) (domain.Action, error) {
	if cb, ok := req.Callback(domain.CallbackPassword); ok {
		if pw, ok := cb.StringValue(); ok && pw != "" {
			return domain.Goto("outcome").WithTransient(domain.KeyPassword, pw), nil
		}
	}
	return domain.Send(domain.PasswordCallback(n.prompt)), nil
}

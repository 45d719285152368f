package nodes

import (
	"context"
	"errors"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
	"github.com/pquerna/otp/totp"
)

const attemptsKey = "attempts"

// OneTimePasswordConfig configures a OneTimePassword node.
type OneTimePasswordConfig struct {
	MaxAttempts int    `json:"max_attempts"`
	Prompt      string `json:"prompt"`
}

// OneTimePassword checks a TOTP code for the shared username. A wrong code re-prompts
// until MaxAttempts codes were rejected; the attempt count lives in the node's private
// namespace so the client cannot reset it.
type OneTimePassword struct {
	cfg     OneTimePasswordConfig
	secrets SecretStore
}

// NewOneTimePassword decodes decl into a OneTimePassword node.
func NewOneTimePassword(decl domain.NodeDecl, secrets SecretStore) (*OneTimePassword, error) {
	cfg, err := parseOneTimePasswordConfig(decl)
	if err != nil {
		return nil, err
	}
	if secrets == nil {
		return nil, errors.New("no secret store configured")
	}
	return &OneTimePassword{cfg: cfg, secrets: secrets}, nil
}

func parseOneTimePasswordConfig(decl domain.NodeDecl) (OneTimePasswordConfig, error) {
	cfg := OneTimePasswordConfig{MaxAttempts: 3, Prompt: "One Time Password"}
	if err := registry.Decode(decl.Config, &cfg); err != nil {
		return cfg, err
	}
	if cfg.MaxAttempts < 1 {
		return cfg, errors.New("max_attempts must be at least 1")
	}
	return cfg, nil
}

// Inputs implements domain.InputDeclarer.
func (n *OneTimePassword) Inputs() []domain.Input {
	return []domain.Input{{Key: domain.KeyUsername, Required: true}}
}

// Process implements domain.Node.
func (n *OneTimePassword) Process(ctx context.Context, req *domain.Request, state domain.NodeState) (domain.Action, error) {
	cb, ok := req.Callback(domain.CallbackName)
	code, _ := cb.StringValue()
	if !ok || code == "" {
		return domain.Send(domain.NameCallback(n.cfg.Prompt)), nil
	}

	username, _ := state.String(domain.KeyUsername)
	secret, err := n.secrets.TOTPSecret(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		return domain.Goto("false").WithoutPrivate(), nil
	}
	if err != nil {
		return domain.Action{}, err
	}

	if totp.Validate(code, secret) {
		return domain.Goto("true").WithoutPrivate(), nil
	}

	attempts := 0
	if raw, ok := state.Private(attemptsKey); ok {
		attempts, _ = domain.AsInt(raw)
	}
	attempts++
	if attempts >= n.cfg.MaxAttempts {
		return domain.Goto("false").WithoutPrivate(), nil
	}
	return domain.Send(
		domain.TextOutputCallback("Invalid code, please try again."),
		domain.NameCallback(n.cfg.Prompt),
	).WithPrivate(attemptsKey, attempts), nil
}

// Package continuation seals the client-visible part of a suspended evaluation
// into an opaque token.
//
// A token carries the session handle, the tree name, the node awaiting input, the
// shared state, the audit trail, the recorded tree hooks, the side-channel data
// and the state version. Transient state and private node namespaces are never
// encoded: they stay server-side in the session vault.
package continuation

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/authtree/internal/sealing"
	"github.com/aretw0/authtree/pkg/domain"
)

var (
	// ErrInvalidToken is returned for tokens that are malformed, tampered with or
	// sealed with an unknown key.
	ErrInvalidToken = errors.New("invalid continuation token")
	// ErrExpired is returned for authentic tokens past their expiry.
	ErrExpired = errors.New("continuation token expired")
)

// DefaultTTL bounds how long a client may take to answer callbacks.
const DefaultTTL = 5 * time.Minute

const tokenVersion = 1

// aad binds tokens to this codec so vault ciphertexts sealed with the same key
// cannot be replayed as tokens.
var aad = []byte("authtree/continuation/v1")

// Token is the decoded content of a continuation.
type Token struct {
	Handle            string            `json:"h"`
	Tree              string            `json:"t"`
	NodeID            string            `json:"n"`
	Shared            map[string]any    `json:"s,omitempty"`
	Visited           []string          `json:"v,omitempty"`
	Hooks             []domain.HookRef  `json:"k,omitempty"`
	SessionProperties map[string]string `json:"p,omitempty"`
	Identity          string            `json:"i,omitempty"`
	Version           int               `json:"r"`
	ExpiresAt         int64             `json:"e"`
	Format            int               `json:"f"`
}

// FromState captures the client-visible part of state under handle.
func FromState(handle string, state *domain.TreeState) Token {
	return Token{
		Handle:            handle,
		Tree:              state.TreeName,
		NodeID:            state.CurrentNodeID,
		Shared:            domain.CloneDocument(state.Shared),
		Visited:           append([]string(nil), state.Visited...),
		Hooks:             append([]domain.HookRef(nil), state.Hooks...),
		SessionProperties: cloneProps(state.SessionProperties),
		Identity:          state.Identity,
		Version:           state.Version,
	}
}

// State rebuilds a TreeState from the token. private supplies the node namespaces
// kept in the vault; it may be nil.
func (t Token) State(private map[string]map[string]any) *domain.TreeState {
	state := domain.NewTreeState(t.Tree)
	state.CurrentNodeID = t.NodeID
	if t.Shared != nil {
		state.Shared = domain.CloneDocument(t.Shared)
	}
	for id, ns := range private {
		state.Private[id] = domain.CloneDocument(ns)
	}
	state.Visited = append([]string(nil), t.Visited...)
	state.Hooks = append([]domain.HookRef(nil), t.Hooks...)
	state.SessionProperties = cloneProps(t.SessionProperties)
	state.Identity = t.Identity
	state.Version = t.Version
	return state
}

func cloneProps(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Codec seals and opens tokens.
type Codec struct {
	key       []byte
	fallbacks [][]byte
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithFallbackKeys lets Open accept tokens sealed with retired keys.
func WithFallbackKeys(keys ...[]byte) Option {
	return func(c *Codec) {
		c.fallbacks = append(c.fallbacks, keys...)
	}
}

// WithTTL sets the token lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec sealing with key (32 bytes).
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if err := sealing.CheckKey(key); err != nil {
		return nil, fmt.Errorf("continuation: %w", err)
	}
	c := &Codec{key: key, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	for i, k := range c.fallbacks {
		if err := sealing.CheckKey(k); err != nil {
			return nil, fmt.Errorf("continuation: fallback key %d: %w", i, err)
		}
	}
	return c, nil
}

// Seal stamps the expiry on t and returns the URL-safe token string.
func (c *Codec) Seal(t Token) (string, error) {
	t.Format = tokenVersion
	t.ExpiresAt = c.now().Add(c.ttl).Unix()

	plain, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal continuation: %w", err)
	}
	sealed, err := sealing.Seal(c.key, plain, aad)
	if err != nil {
		return "", fmt.Errorf("failed to seal continuation: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open verifies and decodes a token string.
func (c *Codec) Open(s string) (Token, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: not base64url", ErrInvalidToken)
	}
	plain, err := sealing.Open(raw, aad, c.key, c.fallbacks...)
	if err != nil {
		return Token{}, ErrInvalidToken
	}

	var t Token
	if err := json.Unmarshal(plain, &t); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.Format != tokenVersion || t.Handle == "" || t.Tree == "" || t.NodeID == "" {
		return Token{}, fmt.Errorf("%w: incomplete", ErrInvalidToken)
	}
	if c.now().Unix() >= t.ExpiresAt {
		return Token{}, ErrExpired
	}
	return t, nil
}

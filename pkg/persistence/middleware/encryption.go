package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/authtree/internal/sealing"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
)

const encryptedKey = "__encrypted__"

var vaultAAD = []byte("authtree/vault/v1")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts vault records at rest
// using AES-GCM. It panics on a key that is not 32 bytes.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if err := sealing.CheckKey(config.ActiveKey); err != nil {
		panic("active " + err.Error())
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, handle string, state *domain.TreeState) error {
	// 1. Serialize real state
	plainText, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// 2. Encrypt, binding the ciphertext to its handle
	ciphertext, err := sealing.Seal(m.config.ActiveKey, plainText, aadFor(handle))
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	// 3. Create an opaque envelope. Only the tree name and version stay visible
	// so operators can still list and correlate sessions.
	envelope := domain.NewTreeState(state.TreeName)
	envelope.Version = state.Version
	envelope.Shared = map[string]any{
		encryptedKey: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return m.next.Save(ctx, handle, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, handle string) (*domain.TreeState, error) {
	// 1. Load envelope
	envelope, err := m.next.Load(ctx, handle)
	if err != nil {
		return nil, err
	}

	// 2. Extract ciphertext. Plain records are rejected: fail secure.
	encryptedStr, ok := envelope.Shared[encryptedKey].(string)
	if !ok {
		return nil, errors.New("state is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// 3. Decrypt (Try Active, then Fallback)
	plainText, err := sealing.Open(ciphertext, aadFor(handle), m.config.ActiveKey, m.config.FallbackKeys...)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	// 4. Deserialize
	var realState domain.TreeState
	if err := json.Unmarshal(plainText, &realState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}

	return &realState, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, handle string) error {
	return m.next.Delete(ctx, handle)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func aadFor(handle string) []byte {
	return append(append([]byte(nil), vaultAAD...), handle...)
}

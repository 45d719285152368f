package nodes

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownUser is returned by identity stores for usernames they do not hold.
var ErrUnknownUser = errors.New("unknown user")

// CredentialStore resolves the bcrypt password hash of a user.
type CredentialStore interface {
	PasswordHash(ctx context.Context, username string) ([]byte, error)
}

// SecretStore resolves the base32 TOTP secret of a user.
type SecretStore interface {
	TOTPSecret(ctx context.Context, username string) (string, error)
}

// Identity is one user record of a StaticIdentities store.
type Identity struct {
	Username     string `json:"username" yaml:"username"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
	TOTPSecret   string `json:"totp_secret,omitempty" yaml:"totp_secret,omitempty"`
}

// StaticIdentities is an in-memory CredentialStore and SecretStore.
type StaticIdentities struct {
	mu    sync.RWMutex
	users map[string]Identity
}

// NewStaticIdentities indexes ids by username.
func NewStaticIdentities(ids ...Identity) *StaticIdentities {
	s := &StaticIdentities{users: make(map[string]Identity, len(ids))}
	for _, id := range ids {
		s.users[id.Username] = id
	}
	return s
}

// Put adds or replaces an identity.
func (s *StaticIdentities) Put(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id.Username] = id
}

// PasswordHash implements CredentialStore.
func (s *StaticIdentities) PasswordHash(_ context.Context, username string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.users[username]
	if !ok || id.PasswordHash == "" {
		return nil, ErrUnknownUser
	}
	return []byte(id.PasswordHash), nil
}

// TOTPSecret implements SecretStore.
func (s *StaticIdentities) TOTPSecret(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.users[username]
	if !ok || id.TOTPSecret == "" {
		return "", ErrUnknownUser
	}
	return id.TOTPSecret, nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

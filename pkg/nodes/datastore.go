package nodes

import (
	"context"
	"errors"

	"github.com/aretw0/authtree/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

// DataStoreDecision verifies the collected username and password against a
// CredentialStore. Outcome "true" binds the identity; unknown users and wrong
// passwords both go to "false".
type DataStoreDecision struct {
	store CredentialStore
}

// NewDataStoreDecision decodes decl into a DataStoreDecision.
func NewDataStoreDecision(decl domain.NodeDecl, store CredentialStore) (*DataStoreDecision, error) {
	if err := checkEmptyConfig(decl); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("no credential store configured")
	}
	return &DataStoreDecision{store: store}, nil
}

// Inputs implements domain.InputDeclarer.
func (n *DataStoreDecision) Inputs() []domain.Input {
	return []domain.Input{
		{Key: domain.KeyUsername, Required: true},
		{Key: domain.KeyPassword, Required: true},
	}
}

// Process implements domain.Node.
func (n *DataStoreDecision) Process(ctx context.Context, _ *domain.Request, state domain.NodeState) (domain.Action, error) {
	username, _ := state.String(domain.KeyUsername)
	password, _ := state.String(domain.KeyPassword)

	hash, err := n.store.PasswordHash(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		return domain.Goto("false"), nil
	}
	if err != nil {
		return domain.Action{}, err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.Goto("false"), nil
		}
		return domain.Action{}, err
	}
	return domain.Goto("true").WithIdentity(username), nil
}

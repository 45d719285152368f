package realm_test

import (
	"context"
	"testing"

	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadIdentities(t *testing.T) {
	dir := t.TempDir()
	hash, err := nodes.HashPassword("s3cret")
	require.NoError(t, err)

	writeFile(t, dir, "identities.yaml", "users:\n  - username: bob\n    password_hash: "+hash+"\n    totp_secret: JBSWY3DPEHPK3PXP\n")

	ids, err := realm.LoadIdentities(dir)
	require.NoError(t, err)

	stored, err := ids.PasswordHash(context.Background(), "bob")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(stored, []byte("s3cret")))

	secret, err := ids.TOTPSecret(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", secret)

	_, err = ids.PasswordHash(context.Background(), "alice")
	assert.ErrorIs(t, err, nodes.ErrUnknownUser)
}

func TestLoadIdentities_Missing(t *testing.T) {
	ids, err := realm.LoadIdentities(t.TempDir())
	require.NoError(t, err)
	_, err = ids.PasswordHash(context.Background(), "bob")
	assert.ErrorIs(t, err, nodes.ErrUnknownUser)
}

func TestLoadIdentities_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "identities.yaml", "users:\n  - password_hash: x\n")
	_, err := realm.LoadIdentities(dir)
	assert.Error(t, err)
}

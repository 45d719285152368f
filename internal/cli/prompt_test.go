package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/authtree/internal/config"
	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_Answer(t *testing.T) {
	in := strings.NewReader("bob\n7\n\ny\n")
	var out bytes.Buffer
	p := NewPrompter(in, &out)
	p.ReadSecret = func() (string, error) { return "s3cret", nil }

	answers, err := p.Answer([]domain.Callback{
		domain.TextOutputCallback("Welcome"),
		domain.NameCallback("User Name"),
		domain.PasswordCallback(""),
		domain.ChoiceCallback("Second factor", []string{"sms", "totp"}, 1),
		domain.ConfirmationCallback("Trust this device?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "bob", answers[1].Value)
	assert.Equal(t, "s3cret", answers[2].Value)
	// "7" is out of range, the empty line then picks the default.
	assert.Equal(t, 1, answers[3].Value)
	ok, _ := answers[4].BoolValue()
	assert.True(t, ok)

	printed := out.String()
	assert.Contains(t, printed, "Welcome")
	assert.Contains(t, printed, "User Name: ")
	assert.Contains(t, printed, "Password: ")
	assert.Contains(t, printed, " * 1) totp")
	assert.Contains(t, printed, "Enter a number between 0 and 1.")
}

func TestPrompter_EOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.Answer([]domain.Callback{domain.NameCallback("User Name")})
	assert.ErrorIs(t, err, ErrAborted)
}

const loginYAML = `
name: login
entry: user
nodes:
  user:
    type: UsernameCollector
    connections: {outcome: pass}
  pass:
    type: PasswordCollector
    connections: {outcome: check}
  check:
    type: DataStoreDecision
    connections:
      "true": "success"
      "false": "failure"
`

func TestDrive_RealmRuntime(t *testing.T) {
	dir := t.TempDir()
	hash, err := nodes.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.yaml"), []byte(loginYAML), 0o600))
	identities := "users:\n  - username: bob\n    password_hash: \"" + hash + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "identities.yaml"), []byte(identities), 0o600))

	cfg := config.Default()
	cfg.TreesDir = dir
	rt, err := NewRuntime(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	tests := []struct {
		name     string
		password string
		want     domain.ResultKind
	}{
		{"Success", "s3cret", domain.ResultTrue},
		{"Failure", "nope", domain.ResultFalse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPrompter(strings.NewReader("bob\n"), &bytes.Buffer{})
			p.ReadSecret = func() (string, error) { return tt.password, nil }

			resp, err := Drive(context.Background(), rt.Engine, "login", nil, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

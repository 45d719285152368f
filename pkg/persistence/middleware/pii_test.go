package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/authtree/pkg/adapters/memory"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMiddleware_Masking(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	view := middleware.NewRedactMiddleware([]string{"password", "ssn"})(underlyingStore)

	ctx := context.Background()
	handle := "pii-session"
	state := domain.NewTreeState("login")

	// Populate with mixed data
	state.Shared["username"] = "jdoe"
	state.Shared["user_password"] = "secret123"
	state.Shared[domain.KeyInnerTreeSharedState] = map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}
	state.Private["check"] = map[string]any{"password": "x"}

	// 1. Save passes through untouched
	require.NoError(t, view.Save(ctx, handle, state))
	raw, err := underlyingStore.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "secret123", raw.Shared["user_password"])

	// 2. Load is masked
	masked, err := view.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", masked.Shared["username"], "Username shouldn't be masked")
	assert.Equal(t, middleware.Mask, masked.Shared["user_password"])
	assert.Equal(t, middleware.Mask, masked.Private["check"]["password"])

	details := masked.Shared[domain.KeyInnerTreeSharedState].(map[string]any)
	assert.Equal(t, middleware.Mask, details["ssn_number"], "Nested values are masked")
	assert.Equal(t, "123 St", details["address"])

	// 3. The stored record is not modified by reading it
	again, err := underlyingStore.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "secret123", again.Shared["user_password"])
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlyingStore,
		middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	state := domain.NewTreeState("login")
	state.Shared["otp_code"] = "123456"
	require.NoError(t, store.Save(context.Background(), "h", state))

	// Redaction is outermost, so it sees decrypted values.
	loaded, err := store.Load(context.Background(), "h")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Shared["otp_code"])
}

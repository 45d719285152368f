package sealing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) []byte { return bytes.Repeat([]byte{b}, KeySize) }

func TestSealOpen(t *testing.T) {
	sealed, err := Seal(key(1), []byte("hello"), []byte("ctx"))
	require.NoError(t, err)

	plain, err := Open(sealed, []byte("ctx"), key(1))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))

	_, err = Open(sealed, []byte("other"), key(1))
	assert.ErrorIs(t, err, ErrOpen, "aad is authenticated")
}

func TestOpen_Rotation(t *testing.T) {
	sealed, err := Seal(key(1), []byte("hello"), nil)
	require.NoError(t, err)

	plain, err := Open(sealed, nil, key(2), key(3), key(1))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plain))

	_, err = Open(sealed, nil, key(2))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpen_Garbage(t *testing.T) {
	_, err := Open([]byte("x"), nil, key(1))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCheckKey(t *testing.T) {
	assert.NoError(t, CheckKey(key(1)))
	assert.Error(t, CheckKey([]byte("short-key")))
}

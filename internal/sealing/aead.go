// Package sealing wraps AES-256-GCM with key rotation for the continuation codec
// and the vault encryption middleware.
package sealing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

// ErrOpen is returned when no configured key authenticates the ciphertext.
var ErrOpen = errors.New("decryption failed with all available keys")

// CheckKey validates the key length.
func CheckKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("key must be %d bytes (AES-256), got %d", KeySize, len(key))
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with key. The random nonce is prepended to the output.
// aad is authenticated but not encrypted.
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext trying the active key first, then each fallback in order.
func Open(ciphertext, aad []byte, active []byte, fallbacks ...[]byte) ([]byte, error) {
	if plain, err := open(active, ciphertext, aad); err == nil {
		return plain, nil
	}

	for _, key := range fallbacks {
		if plain, err := open(key, ciphertext, aad); err == nil {
			return plain, nil
		}
	}

	return nil, ErrOpen
}

func open(key, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], aad)
}

// Package escrow keeps generated account passwords recoverable by admins.
// Values are sealed with AES-256-GCM under a key derived from a server secret.
package escrow

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ErrDisabled is returned by Open when no secret is configured.
var ErrDisabled = errors.New("password escrow is disabled")

// Vault seals and opens escrowed passwords.
type Vault struct {
	secret string
}

// New returns a vault for secret. An empty secret yields a disabled vault.
func New(secret string) *Vault {
	return &Vault{secret: secret}
}

func (v *Vault) Disabled() bool {
	return v == nil || v.secret == ""
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext and returns base64([salt][nonce][ciphertext]).
// A disabled vault returns "" and nothing should be stored.
func (v *Vault) Seal(plaintext string) (string, error) {
	if v.Disabled() {
		return "", nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(deriveKey(v.secret, salt))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (v *Vault) Open(sealed string) (string, error) {
	if v.Disabled() {
		return "", ErrDisabled
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	if len(data) < saltSize+nonceSize {
		return "", errors.New("sealed value too small")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	gcm, err := newGCM(deriveKey(v.secret, salt))
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, data[saltSize+nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrDecryptFailed is the single failure outcome of Decrypt. A wrong-password
// derivation, a mismatched key, bad padding and a corrupted blob are all
// indistinguishable by design; callers display it as "wrong password".
var ErrDecryptFailed = errors.New("decryption failed")

// Encrypt seals a recipient's plaintext identity under the giver's public key
// using RSA-OAEP with SHA-256 for both the hash and the mask generation
// function. The result is a self-contained base64 blob.
func Encrypt(plaintext string, publicKeyPEM string) (string, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	sealed, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt using a derived private key.
// It never panics and never returns partial plaintext: every failure collapses
// to ErrDecryptFailed. Decryption with a key derived from the wrong secret is
// an expected outcome here, not a programming error.
func Decrypt(ciphertext string, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", ErrDecryptFailed
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}

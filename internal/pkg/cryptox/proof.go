package cryptox

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// proofDigest collapses the credential pair to a fixed 32 bytes before
// bcrypt sees it. bcrypt rejects inputs over 72 bytes, and identity plus
// secret at their maximum rune lengths can exceed that.
func proofDigest(identity, secret string) []byte {
	sum := sha256.Sum256([]byte(identity + ":" + secret))
	return sum[:]
}

// NewProof produces a one-way, salted credential proof over identity and
// secret. The proof re-authenticates a participant later; it is never
// reversible to the secret.
func NewProof(identity, secret string) (string, error) {
	proof, err := bcrypt.GenerateFromPassword(proofDigest(identity, secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate credential proof: %w", err)
	}

	return string(proof), nil
}

// VerifyProof reports whether the supplied identity and secret match the
// stored proof. Comparison is constant-time inside bcrypt.
func VerifyProof(proof, identity, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(proof), proofDigest(identity, secret)) == nil
}

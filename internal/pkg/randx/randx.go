/*
Package randx provides functions for generating cryptographically secure random values
and unique identifiers.

It is primarily used to generate per-participant derivation salts and standard UUID room IDs.
*/
package randx

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	mrand "math/rand"

	"github.com/google/uuid"
)

// SaltBytes is the number of random bytes in a derivation salt (before hex encoding).
const SaltBytes = 16

// Salt generates a fresh high-entropy derivation salt using crypto/rand
// and returns it hex-encoded. The salt is bound to one participant identity
// and reused for every subsequent derivation of that participant's keypair.
func Salt() (string, error) {
	buf := make([]byte, SaltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random salt: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// CryptoSeededRand returns a math/rand generator seeded from crypto/rand.
// It is used where a shuffleable source is needed (derangement draws) without
// relying on the default time-seeded generator.
func CryptoSeededRand() (*mrand.Rand, error) {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to seed random source: %w", err)
	}

	return mrand.New(mrand.NewSource(int64(binary.BigEndian.Uint64(seed[:])))), nil
}

// RoomID generates a standard UUID v4 string to serve as an opaque unique room identifier.
func RoomID() string {
	return uuid.New().String()
}

// IsValidRoomID checks if the given string parses as a room identifier.
func IsValidRoomID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidSalt checks if the given string is a well-formed derivation salt.
func IsValidSalt(salt string) bool {
	if len(salt) != SaltBytes*2 {
		return false
	}

	_, err := hex.DecodeString(salt)
	return err == nil
}

/*
Package cryptox implements the cryptographic contracts of the gift exchange:
deterministic keypair derivation from a password, the assignment
encryption/decryption codec, and one-way credential proofs.

Nothing in this package keeps state. The service itself never derives a
private key on behalf of a participant; derivation runs client-side and is
implemented here for client tooling and for the test suite.
*/
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count used in production.
	// It is tuned to cost seconds of compute on commodity hardware; the delay
	// is a deliberate brute-force deterrent, not incidental.
	DefaultIterations = 3_000_000

	// KeyBits is the modulus size of derived RSA keypairs.
	KeyBits = 2048

	// seedLen is the number of bytes PBKDF2 stretches the password into.
	seedLen = 64
)

// deriveInfo labels the HKDF expansion so the keystream is domain-separated
// from any other use of the same seed.
var deriveInfo = []byte("secretsanta/v1 rsa keygen stream")

// Derive deterministically turns (identity, secret, roomID, salt) into a
// 2048-bit RSA keypair. Identical inputs always yield a byte-identical
// keypair, across processes and time: the password is stretched with
// PBKDF2-SHA256 keyed by the hex-encoded salt, the stretched seed keys an
// AES-CTR keystream (the deterministic bit generator), and the RSA primes are
// drawn from that keystream.
//
// Any failure propagates to the caller. A silently wrong keypair would encrypt
// an assignment nobody can ever read, which is strictly worse than a crash.
func Derive(identity, secret, roomID, salt string, iterations int) (*rsa.PrivateKey, error) {
	if identity == "" || secret == "" || roomID == "" {
		return nil, errors.New("derive: identity, secret and room id must be non-empty")
	}
	if iterations < 1 {
		return nil, fmt.Errorf("derive: invalid iteration count %d", iterations)
	}

	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("derive: malformed salt: %w", err)
	}
	if len(saltBytes) == 0 {
		return nil, errors.New("derive: empty salt")
	}

	// The room id in the seed binds the keypair to one room, so reusing the
	// same name and password elsewhere yields an unrelated key.
	seedInput := identity + ":" + secret + ":" + roomID
	seed := pbkdf2.Key([]byte(seedInput), saltBytes, iterations, seedLen, sha256.New)

	stream, err := newSeedStream(seed)
	if err != nil {
		return nil, fmt.Errorf("derive: failed to initialize keystream: %w", err)
	}

	key, err := generateKeyFromStream(stream, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("derive: keypair generation failed: %w", err)
	}

	return key, nil
}

// newSeedStream builds the deterministic bit generator: HKDF-SHA256 expands
// the stretched seed into an AES-256 key and IV, and the returned reader
// yields the unbounded AES-CTR keystream over zeros.
func newSeedStream(seed []byte) (io.Reader, error) {
	kdf := hkdf.New(sha256.New, seed, nil, deriveInfo)

	keyAndIV := make([]byte, 32+aes.BlockSize)
	if _, err := io.ReadFull(kdf, keyAndIV); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keyAndIV[:32])
	if err != nil {
		return nil, err
	}

	return &cipher.StreamReader{
		S: cipher.NewCTR(block, keyAndIV[32:]),
		R: zeroReader{},
	}, nil
}

// zeroReader is an endless stream of zero bytes; XORed with the CTR keystream
// it exposes the raw keystream itself.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// generateKeyFromStream performs RSA key generation over a caller-supplied
// random stream. The standard library's rsa.GenerateKey deliberately
// desynchronizes itself from its reader, so a determinism-preserving prime
// search is done here instead: fixed public exponent 65537, two primes of
// bits/2 read directly from the stream.
func generateKeyFromStream(stream io.Reader, bits int) (*rsa.PrivateKey, error) {
	e := big.NewInt(65537)

	one := big.NewInt(1)

	for {
		p, err := readPrime(stream, bits/2)
		if err != nil {
			return nil, err
		}

		q, err := readPrime(stream, bits/2)
		if err != nil {
			return nil, err
		}

		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		if n.BitLen() != bits {
			continue
		}

		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		totient := new(big.Int).Mul(pMinus1, qMinus1)

		d := new(big.Int).ModInverse(e, totient)
		if d == nil {
			// e shares a factor with p-1 or q-1; draw fresh primes.
			continue
		}

		key := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
			D:         d,
			Primes:    []*big.Int{p, q},
		}
		key.Precompute()

		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("generated key failed validation: %w", err)
		}

		return key, nil
	}
}

// readPrime draws candidate odd integers of the requested bit length from the
// stream until one passes the primality test. The top two bits are forced so
// the product of two primes always reaches the full modulus length.
func readPrime(stream io.Reader, bits int) (*big.Int, error) {
	if bits%8 != 0 {
		return nil, fmt.Errorf("prime bit length %d is not a whole number of bytes", bits)
	}

	buf := make([]byte, bits/8)

	for {
		if _, err := io.ReadFull(stream, buf); err != nil {
			return nil, fmt.Errorf("keystream exhausted during prime search: %w", err)
		}

		buf[0] |= 0xC0
		buf[len(buf)-1] |= 0x01

		candidate := new(big.Int).SetBytes(buf)
		if candidate.ProbablyPrime(32) {
			return candidate, nil
		}
	}
}

// EncodePublicKey serializes an RSA public key as a PKIX PEM block, the
// portable text encoding participants upload at registration.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParsePublicKey decodes a PKIX PEM public key and rejects anything that is
// not RSA of the expected size class.
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}

	if pub.N.BitLen() < KeyBits {
		return nil, fmt.Errorf("public key too small: %d bits", pub.N.BitLen())
	}

	return pub, nil
}

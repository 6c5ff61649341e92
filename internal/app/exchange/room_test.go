package exchange

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretsanta/internal/pkg/cryptox"
	"secretsanta/internal/pkg/errs"
)

const (
	testHostIdentity = "Heidi"
	testHostSecret   = "host-secret"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()

	proof, err := cryptox.NewProof(testHostIdentity, testHostSecret)
	require.NoError(t, err)

	return newRoom("room-under-test", "Office Exchange", testHostIdentity, proof)
}

// newTestKeyPair generates a keypair the fast way; derivation determinism is
// covered by the cryptox tests and is irrelevant to room semantics.
func newTestKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubPEM, err := cryptox.EncodePublicKey(&key.PublicKey)
	require.NoError(t, err)

	return key, pubPEM
}

func registerWithKey(t *testing.T, room *Room, identity, secret string) *rsa.PrivateKey {
	t.Helper()

	key, pubPEM := newTestKeyPair(t)

	_, customErr := room.Register(identity, secret, pubPEM, "")
	require.Nil(t, customErr, "registration of %s should succeed", identity)

	return key
}

func TestRegisterNewParticipant(t *testing.T) {
	room := newTestRoom(t)

	_, pubPEM := newTestKeyPair(t)
	result, customErr := room.Register("Alice", "alice-secret", pubPEM, "")
	require.Nil(t, customErr)

	assert.False(t, result.AlreadyRegistered)
	assert.False(t, result.IsHost)
	assert.Len(t, result.Salt, 32, "a fresh hex salt should be reported back")
	require.Len(t, result.Room.Participants, 1)
	assert.Equal(t, "Alice", result.Room.Participants[0].Identity)
	assert.True(t, result.Room.Participants[0].HasPublicKey)
	assert.False(t, result.Room.Participants[0].HasAssignment)
}

func TestRegisterKeepsProposedSalt(t *testing.T) {
	room := newTestRoom(t)

	proposed := "00112233445566778899aabbccddeeff"
	_, pubPEM := newTestKeyPair(t)

	result, customErr := room.Register("Alice", "alice-secret", pubPEM, proposed)
	require.Nil(t, customErr)
	assert.Equal(t, proposed, result.Salt, "a well-formed proposed salt should be persisted as-is")
}

func TestRegisterWrongSecretForExistingIdentity(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")

	_, pubPEM := newTestKeyPair(t)
	_, customErr := room.Register("Alice", "not-her-secret", pubPEM, "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)
}

func TestReRegisterUpdatesKeyWithoutDuplicateOrNewSalt(t *testing.T) {
	room := newTestRoom(t)

	_, firstPEM := newTestKeyPair(t)
	first, customErr := room.Register("Bob", "bob-secret-123", firstPEM, "")
	require.Nil(t, customErr)

	_, secondPEM := newTestKeyPair(t)
	second, customErr := room.Register("Bob", "bob-secret-123", secondPEM, "ffffffffffffffffffffffffffffffff")
	require.Nil(t, customErr)

	assert.True(t, second.AlreadyRegistered)
	assert.Equal(t, first.Salt, second.Salt, "re-registration must never change the salt")
	assert.Len(t, second.Room.Participants, 1, "re-registration must not create a duplicate")
	assert.Equal(t, secondPEM, room.participants.get("Bob").PublicKey, "the new public key should be stored")
}

func TestRegisterValidationBounds(t *testing.T) {
	room := newTestRoom(t)

	_, customErr := room.Register("A", "long-enough-secret", "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrIdentityInvalid, customErr.Code)

	_, customErr = room.Register("Alice", "short", "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrSecretInvalid, customErr.Code)

	_, customErr = room.Register("Alice", "long-enough-secret", "not a key", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
}

func TestRegisterMaximumLengthCredentials(t *testing.T) {
	room := newTestRoom(t)

	cases := []struct {
		name     string
		identity string
		secret   string
	}{
		{"ascii at the bounds", strings.Repeat("a", MaxIdentityLen), strings.Repeat("b", MaxSecretLen)},
		{"multibyte at the bounds", strings.Repeat("ü", MaxIdentityLen), strings.Repeat("雪", MaxSecretLen)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, pubPEM := newTestKeyPair(t)

			result, customErr := room.Register(tc.identity, tc.secret, pubPEM, "")
			require.Nil(t, customErr, "maximum-length credentials are valid and must register")
			assert.False(t, result.AlreadyRegistered)

			// The stored proof must round-trip for re-registration.
			again, customErr := room.Register(tc.identity, tc.secret, pubPEM, "")
			require.Nil(t, customErr)
			assert.True(t, again.AlreadyRegistered)
			assert.Equal(t, result.Salt, again.Salt)
		})
	}
}

func TestHostDualRoleRegistration(t *testing.T) {
	room := newTestRoom(t)

	// Wrong host secret cannot claim the host's name.
	_, pubPEM := newTestKeyPair(t)
	_, customErr := room.Register(testHostIdentity, "impostor-secret", pubPEM, "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)

	result, customErr := room.Register(testHostIdentity, testHostSecret, pubPEM, "")
	require.Nil(t, customErr)
	assert.True(t, result.IsHost)
	assert.False(t, result.AlreadyRegistered)
}

func TestInitRegister(t *testing.T) {
	room := newTestRoom(t)

	// New identity: salt handed out, no participant created.
	first, customErr := room.InitRegister("Alice", "alice-secret")
	require.Nil(t, customErr)
	assert.False(t, first.AlreadyExists)
	assert.Len(t, first.Salt, 32)
	assert.Equal(t, 0, room.participants.len(), "an abandoned init-register must not consume room capacity")

	registerWithKey(t, room, "Alice", "alice-secret")

	// Existing identity: the secret gates the stored salt.
	_, customErr = room.InitRegister("Alice", "not-her-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)

	again, customErr := room.InitRegister("Alice", "alice-secret")
	require.Nil(t, customErr)
	assert.True(t, again.AlreadyExists)
	assert.Equal(t, room.participants.get("Alice").DerivationSalt, again.Salt)
}

func TestStartRequiresTwoParticipants(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")

	_, customErr := room.Start(testHostIdentity, testHostSecret)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrNotEnoughParticipants, customErr.Code)
	assert.Equal(t, StatusOpen, room.PublicInfo().Status, "a failed start must leave the room open")
}

func TestStartRequiresCompleteRegistrations(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")

	_, customErr := room.Register("Bob", "bob-secret-123", "", "")
	require.Nil(t, customErr)

	_, customErr = room.Start(testHostIdentity, testHostSecret)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrParticipantKeyMissing, customErr.Code)
	assert.Equal(t, StatusOpen, room.PublicInfo().Status)
}

func TestStartRejectsNonHost(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")
	registerWithKey(t, room, "Bob", "bob-secret-123")

	_, customErr := room.Start(testHostIdentity, "wrong-host-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)

	_, customErr = room.Start("Alice", "alice-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)
}

func TestStartAndRevealScenario(t *testing.T) {
	room := newTestRoom(t)

	secrets := map[string]string{
		"Alice": "alice-secret",
		"Bob":   "bob-secret-123",
		"Carol": "carol-secret-9",
	}
	keys := make(map[string]*rsa.PrivateKey, len(secrets))
	for identity, secret := range secrets {
		keys[identity] = registerWithKey(t, room, identity, secret)
	}

	// Login before start is a state conflict.
	_, customErr := room.Login("Alice", "alice-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrRoomStateConflict, customErr.Code)

	result, customErr := room.Start(testHostIdentity, testHostSecret)
	require.Nil(t, customErr)
	assert.Equal(t, StatusStarted, result.Status)
	assert.Equal(t, 3, result.ParticipantCount)

	// Starting twice is a state conflict; the room never reopens.
	_, customErr = room.Start(testHostIdentity, testHostSecret)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrRoomStateConflict, customErr.Code)

	// Registration after start must not mutate the participant set.
	_, customErr = room.Register("Dave", "dave-secret-77", "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrRoomStateConflict, customErr.Code)
	assert.Equal(t, 3, room.PublicInfo().ParticipantCount)

	// Every participant can reveal a receiver that is not themselves, and the
	// receivers form a bijection.
	receivers := make(map[string]bool, len(secrets))
	for identity, secret := range secrets {
		login, customErr := room.Login(identity, secret)
		require.Nil(t, customErr)
		assert.NotEmpty(t, login.Ciphertext)
		assert.NotEmpty(t, login.Salt)

		receiver, err := cryptox.Decrypt(login.Ciphertext, keys[identity])
		require.NoError(t, err)

		assert.Contains(t, secrets, receiver, "decrypted value must be a participant identity")
		assert.NotEqual(t, identity, receiver, "nobody may be assigned to themselves")
		assert.False(t, receivers[receiver], "each participant must be drawn exactly once")
		receivers[receiver] = true
	}
}

func TestLoginWrongSecret(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")
	registerWithKey(t, room, "Bob", "bob-secret-123")

	_, customErr := room.Start(testHostIdentity, testHostSecret)
	require.Nil(t, customErr)

	_, customErr = room.Login("Alice", "not-her-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)

	// An unknown name yields the same generic outcome as a wrong secret.
	_, customErr = room.Login("Mallory", "whatever-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)
}

func TestRemoveParticipant(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, testHostIdentity, testHostSecret)
	registerWithKey(t, room, "Alice", "alice-secret")

	_, customErr := room.RemoveParticipant(testHostIdentity, testHostSecret, "Nobody")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrParticipantNotFound, customErr.Code)

	_, customErr = room.RemoveParticipant(testHostIdentity, testHostSecret, testHostIdentity)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrHostNotRemovable, customErr.Code)

	remaining, customErr := room.RemoveParticipant(testHostIdentity, testHostSecret, "Alice")
	require.Nil(t, customErr)
	require.Len(t, remaining, 1)
	assert.Equal(t, testHostIdentity, remaining[0].Identity)
}

func TestHostAuthenticate(t *testing.T) {
	room := newTestRoom(t)
	registerWithKey(t, room, "Alice", "alice-secret")
	registerWithKey(t, room, "Bob", "bob-secret-123")

	_, customErr := room.HostAuthenticate(testHostIdentity, "wrong-host-secret")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidCredentials, customErr.Code)

	details, customErr := room.HostAuthenticate(testHostIdentity, testHostSecret)
	require.Nil(t, customErr)
	assert.Equal(t, StatusOpen, details.Status)
	require.Len(t, details.Participants, 2)
	for _, p := range details.Participants {
		assert.False(t, p.HasAssignment)
	}

	_, customErr = room.Start(testHostIdentity, testHostSecret)
	require.Nil(t, customErr)

	// Host authentication stays available after start and reflects assignments.
	details, customErr = room.HostAuthenticate(testHostIdentity, testHostSecret)
	require.Nil(t, customErr)
	assert.Equal(t, StatusStarted, details.Status)
	for _, p := range details.Participants {
		assert.True(t, p.HasAssignment)
	}
}

func TestConcurrentRegistrationsKeepUniqueness(t *testing.T) {
	room := newTestRoom(t)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()

			identity := fmt.Sprintf("participant-%d", i)
			// Every goroutine double-registers to exercise the idempotent path
			// under contention.
			for attempt := 0; attempt < 2; attempt++ {
				_, customErr := room.Register(identity, "shared-secret-pw", "", "")
				assert.Nil(t, customErr)
			}
		}(i)
	}

	wg.Wait()

	info := room.PublicInfo()
	assert.Equal(t, workers, info.ParticipantCount, "exactly one entry per distinct identity")
}

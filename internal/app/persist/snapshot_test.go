package persist

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretsanta/internal/app/exchange"
)

func testRecords() []exchange.RoomRecord {
	return []exchange.RoomRecord{
		{
			ID:                  "room-1",
			Name:                "Office Exchange",
			HostIdentity:        "Heidi",
			HostCredentialProof: "$2a$10$notarealproofbutpersistedanyway",
			Status:              exchange.StatusOpen,
			CreatedAt:           time.Now().UTC(),
			Participants: []exchange.Participant{
				{
					Identity:        "Alice",
					CredentialProof: "$2a$10$alsonotreal",
					DerivationSalt:  "00112233445566778899aabbccddeeff",
				},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(testRecords()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "room-1", loaded[0].ID)
	require.Len(t, loaded[0].Participants, 1)
	assert.Equal(t, "Alice", loaded[0].Participants[0].Identity)

	// The temporary file must not survive a completed save.
	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err, "a missing snapshot is not an error")
	assert.Empty(t, loaded)
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	require.NoError(t, os.WriteFile(path, []byte("{this is not json"), 0o600))

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err, "a corrupt snapshot must not prevent startup")
	assert.Empty(t, loaded)
}

func TestSaveRetainsTimestampedBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.json")

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(testRecords()))
	require.NoError(t, store.Save(nil))

	backups, err := filepath.Glob(path + ".*.bak")
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "the prior snapshot should be retained before each overwrite")
}

type recordingReplicator struct {
	mu    sync.Mutex
	calls int
	name  string
	done  chan struct{}
}

func (r *recordingReplicator) Replicate(ctx context.Context, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.name = name
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	return nil
}

func TestSaveTriggersReplication(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")
	replicator := &recordingReplicator{done: make(chan struct{})}

	store, err := NewStore(path, replicator)
	require.NoError(t, err)

	require.NoError(t, store.Save(testRecords()))

	select {
	case <-replicator.done:
	case <-time.After(5 * time.Second):
		t.Fatal("replication was never triggered")
	}

	replicator.mu.Lock()
	defer replicator.mu.Unlock()
	assert.Equal(t, 1, replicator.calls)
	assert.Equal(t, "rooms.json", replicator.name)
}

func TestRegistryPersistenceLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	registry := exchange.NewRegistry(store)
	require.NoError(t, registry.Hydrate())

	room, customErr := registry.CreateRoom("Office Exchange", "Heidi", "host-secret", false)
	require.Nil(t, customErr)
	registry.Flush()

	// A second process over the same snapshot sees the committed room.
	restored := exchange.NewRegistry(store)
	require.NoError(t, restored.Hydrate())

	reloaded := restored.GetRoom(room.ID())
	require.NotNil(t, reloaded)
	assert.Equal(t, room.PublicInfo(), reloaded.PublicInfo())
}

func TestRegistryStartsEmptyAfterSnapshotDeletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.json")

	store, err := NewStore(path, nil)
	require.NoError(t, err)

	registry := exchange.NewRegistry(store)
	require.Nil(t, registry.Hydrate())

	_, customErr := registry.CreateRoom("Office Exchange", "Heidi", "host-secret", false)
	require.Nil(t, customErr)
	registry.Flush()

	require.NoError(t, os.Remove(path))

	// Deleting the snapshot before process start yields an empty registry and
	// normal room creation afterwards.
	fresh := exchange.NewRegistry(store)
	require.NoError(t, fresh.Hydrate())

	room, customErr := fresh.CreateRoom("New Year Exchange", "Heidi", "host-secret", false)
	require.Nil(t, customErr)
	assert.NotNil(t, fresh.GetRoom(room.ID()))
}

/*
Package exchange contains the core logic of the gift-assignment exchange.

This file defines the Registry, the process-wide mapping of room identifiers
to Room instances. The registry is an explicit, injectable object with a
defined lifecycle: constructed empty at startup, hydrated from durable
storage, mutated by room-lifecycle operations, and flushed after each
mutation. Cross-room operations need no coordination; only the flush itself is
serialized, inside the snapshot store.
*/
package exchange

import (
	"sync"

	"github.com/rs/zerolog"

	"secretsanta/internal/pkg/cryptox"
	"secretsanta/internal/pkg/errs"
	"secretsanta/internal/pkg/logx"
	"secretsanta/internal/pkg/randx"
)

// SnapshotStore is the durable-storage contract the registry commits through.
// Save must be atomic and crash-safe; Load must tolerate a missing or corrupt
// snapshot by returning no records rather than an error.
type SnapshotStore interface {
	Save(records []RoomRecord) error
	Load() ([]RoomRecord, error)
}

// Registry is the sole externally visible collection of rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	store  SnapshotStore
	logger zerolog.Logger
}

// NewRegistry constructs an empty registry committing through the given store.
func NewRegistry(store SnapshotStore) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		store:  store,
		logger: logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Hydrate rebuilds the in-memory registry from the durable snapshot. A missing
// or unreadable snapshot yields an empty registry, not a startup failure.
func (g *Registry) Hydrate() error {
	records, err := g.store.Load()
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, rec := range records {
		g.rooms[rec.ID] = roomFromRecord(rec)
	}

	g.logger.Info().Int("room_count", len(records)).Msg("Registry hydrated from snapshot.")
	return nil
}

// CreateRoom validates inputs, proofs the host credential, and registers a new
// open room under a fresh opaque id. With autoJoin the host is pre-created as
// a normal participant; their public key arrives later through Register, and
// Start's completeness precondition enforces that it does.
func (g *Registry) CreateRoom(name, hostIdentity, hostSecret string, autoJoin bool) (*Room, *errs.CustomError) {
	name, customErr := sanitizeRoomName(name)
	if customErr != nil {
		return nil, customErr
	}

	if customErr := validateCredentials(hostIdentity, hostSecret); customErr != nil {
		return nil, customErr
	}

	hostProof, err := cryptox.NewProof(hostIdentity, hostSecret)
	if err != nil {
		return nil, errs.NewError(errs.ErrCryptoFailure, err)
	}

	room := newRoom(randx.RoomID(), name, hostIdentity, hostProof)

	if autoJoin {
		if _, customErr := room.Register(hostIdentity, hostSecret, "", ""); customErr != nil {
			return nil, customErr
		}
	}

	g.mu.Lock()
	g.rooms[room.ID()] = room
	g.mu.Unlock()

	g.logger.Info().
		Str("room_id", room.ID()).
		Bool("auto_join", autoJoin).
		Msg("Room created.")

	return room, nil
}

// GetRoom retrieves a room by id, or nil if none exists.
func (g *Registry) GetRoom(id string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rooms[id]
}

// Flush commits the current registry state to durable storage. Each room is
// snapshotted under its own mutex, then the store serializes the write
// process-wide. A failed flush is logged and the in-memory state stays
// authoritative; the next successful flush reconciles.
func (g *Registry) Flush() {
	g.mu.RLock()
	records := make([]RoomRecord, 0, len(g.rooms))
	for _, room := range g.rooms {
		records = append(records, room.Record())
	}
	g.mu.RUnlock()

	if err := g.store.Save(records); err != nil {
		g.logger.Error().Err(err).Int("room_count", len(records)).Msg("Snapshot flush failed. In-memory state remains authoritative.")
	}
}

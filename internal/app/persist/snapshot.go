/*
Package persist implements the durable-storage contract for the room registry:
a JSON snapshot written atomically (write-new-then-replace, never an in-place
partial write), with a timestamped backup of the prior snapshot retained
before each overwrite, and a crash-safe reload that tolerates a missing or
corrupt file by starting empty.
*/
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"secretsanta/internal/app/exchange"
	"secretsanta/internal/pkg/logx"
)

// snapshotVersion tags the on-disk format.
const snapshotVersion = 1

// replicateTimeout bounds each offsite replication attempt.
const replicateTimeout = 30 * time.Second

// Replicator receives a copy of every committed snapshot. Replication is
// best-effort: failures are logged by the store and never affect the commit.
type Replicator interface {
	Replicate(ctx context.Context, name string, data []byte) error
}

// snapshotFile is the envelope written to disk.
type snapshotFile struct {
	Version int                   `json:"version"`
	SavedAt time.Time             `json:"savedAt"`
	Rooms   []exchange.RoomRecord `json:"rooms"`
}

// Store persists registry snapshots to a single file. It implements
// exchange.SnapshotStore.
type Store struct {
	// mu serializes flushes process-wide; a flush in progress must never
	// overlap a second flush.
	mu sync.Mutex

	path       string
	replicator Replicator
	logger     zerolog.Logger
}

// NewStore creates a snapshot store writing to path. replicator may be nil to
// disable offsite replication. The parent directory is created if needed.
func NewStore(path string, replicator Replicator) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &Store{
		path:       path,
		replicator: replicator,
		logger:     logx.Logger().With().Str("component", "persist").Str("path", path).Logger(),
	}, nil
}

// Save writes the records as a new snapshot. The prior snapshot, if any, is
// first copied aside with a timestamp suffix; the new snapshot is written to a
// temporary file and moved into place so a crash mid-write can never leave a
// half-written snapshot under the live name.
func (s *Store) Save(records []exchange.RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	envelope := snapshotFile{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Rooms:   records,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if prior, err := os.ReadFile(s.path); err == nil {
		backupPath := fmt.Sprintf("%s.%s.bak", s.path, time.Now().UTC().Format("20060102T150405"))
		if err := os.WriteFile(backupPath, prior, 0o600); err != nil {
			s.logger.Warn().Err(err).Str("backup_path", backupPath).Msg("Failed to retain prior snapshot backup. Continuing with flush.")
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.logger.Debug().Int("room_count", len(records)).Int("bytes", len(data)).Msg("Snapshot committed.")

	if s.replicator != nil {
		go s.replicate(filepath.Base(s.path), data)
	}

	return nil
}

// Load reads the current snapshot. A missing file or one that fails to parse
// yields an empty record set; the service starts fresh rather than crashing.
func (s *Store) Load() ([]exchange.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info().Msg("No snapshot found. Starting with an empty registry.")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var envelope snapshotFile
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Error().Err(err).Msg("Snapshot is corrupt. Starting with an empty registry.")
		return nil, nil
	}

	return envelope.Rooms, nil
}

// replicate pushes a committed snapshot offsite, fire-and-forget.
func (s *Store) replicate(name string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), replicateTimeout)
	defer cancel()

	if err := s.replicator.Replicate(ctx, name, data); err != nil {
		s.logger.Warn().Err(err).Msg("Offsite snapshot replication failed.")
	}
}

/*
Package exchange contains the core logic of the gift-assignment exchange:
the room state machine, the per-room participant store, the derangement
generator, and the process-wide room registry.

This file defines the Participant record and the ordered participant store.
The store is exclusively owned by its Room and is only ever touched while the
room's mutex is held.
*/
package exchange

import "time"

// Participant is one registered member of a room.
type Participant struct {
	// Identity is the chosen name, unique within the room, immutable after creation.
	Identity string `json:"identity"`

	// CredentialProof is the one-way proof of the participant's secret. It is
	// replaced only when an incoming registration re-verifies against it.
	CredentialProof string `json:"credentialProof"`

	// PublicKey is the derived RSA public key in PEM encoding. Empty until the
	// participant completes registration; mutable only via verified re-registration.
	PublicKey string `json:"publicKey,omitempty"`

	// DerivationSalt is generated once and reused on every re-registration and
	// login, so the same secret always reproduces the same keypair.
	DerivationSalt string `json:"derivationSalt"`

	// Ciphertext holds the encrypted assignment. Empty while the room is open;
	// written exactly once when the room starts.
	Ciphertext string `json:"ciphertext,omitempty"`

	// JoinedAt records registration order alongside the slice position.
	JoinedAt time.Time `json:"joinedAt"`
}

// participantStore keeps participants in registration order and enforces the
// per-room identity uniqueness invariant. Identity matching is case-sensitive
// and exact.
type participantStore struct {
	list []*Participant
}

func (s *participantStore) get(identity string) *Participant {
	for _, p := range s.list {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

func (s *participantStore) add(p *Participant) {
	s.list = append(s.list, p)
}

func (s *participantStore) remove(identity string) bool {
	for i, p := range s.list {
		if p.Identity == identity {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return true
		}
	}
	return false
}

func (s *participantStore) len() int {
	return len(s.list)
}

// identities returns the participant names in registration order.
func (s *participantStore) identities() []string {
	ids := make([]string, 0, len(s.list))
	for _, p := range s.list {
		ids = append(ids, p.Identity)
	}
	return ids
}

// ParticipantSummary is the host-facing view of a participant. It never
// carries proofs, salts, keys or ciphertext.
type ParticipantSummary struct {
	Identity      string    `json:"identity"`
	HasPublicKey  bool      `json:"hasPublicKey"`
	HasAssignment bool      `json:"hasAssignment"`
	JoinedAt      time.Time `json:"joinedAt"`
}

func (s *participantStore) summaries() []ParticipantSummary {
	out := make([]ParticipantSummary, 0, len(s.list))
	for _, p := range s.list {
		out = append(out, ParticipantSummary{
			Identity:      p.Identity,
			HasPublicKey:  p.PublicKey != "",
			HasAssignment: p.Ciphertext != "",
			JoinedAt:      p.JoinedAt,
		})
	}
	return out
}

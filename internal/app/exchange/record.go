package exchange

import "time"

// RoomRecord is the durable form of a room: every Room and Participant field,
// keyed by room id. Records are deep copies; mutating one never touches a live
// room.
type RoomRecord struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	HostIdentity        string        `json:"hostIdentity"`
	HostCredentialProof string        `json:"hostCredentialProof"`
	Status              Status        `json:"status"`
	CreatedAt           time.Time     `json:"createdAt"`
	Participants        []Participant `json:"participants"`
}

// Record captures a consistent snapshot of the room under its mutex.
func (r *Room) Record() RoomRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]Participant, 0, r.participants.len())
	for _, p := range r.participants.list {
		participants = append(participants, *p)
	}

	return RoomRecord{
		ID:                  r.id,
		Name:                r.name,
		HostIdentity:        r.hostIdentity,
		HostCredentialProof: r.hostCredentialProof,
		Status:              r.status,
		CreatedAt:           r.createdAt,
		Participants:        participants,
	}
}

// roomFromRecord rebuilds a live room from its durable form during hydration.
func roomFromRecord(rec RoomRecord) *Room {
	room := newRoom(rec.ID, rec.Name, rec.HostIdentity, rec.HostCredentialProof)
	room.status = rec.Status
	if !rec.CreatedAt.IsZero() {
		room.createdAt = rec.CreatedAt
	}

	for i := range rec.Participants {
		p := rec.Participants[i]
		room.participants.add(&p)
	}

	return room
}

/*
Package exchange contains the core logic of the gift-assignment exchange.

This file defines the Room struct, the state machine gating registration, host
authority, and the transition that generates and encrypts assignments. A room
moves from open to started exactly once and never back. Every mutating
operation is serialized behind the room's mutex, so two concurrent
registrations cannot race on the identity uniqueness invariant and two
concurrent start calls cannot double-generate assignments.
*/
package exchange

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"secretsanta/internal/pkg/cryptox"
	"secretsanta/internal/pkg/errs"
	"secretsanta/internal/pkg/logx"
	"secretsanta/internal/pkg/randx"
)

// Status is the lifecycle state of a room. The progression is monotonic:
// open rooms accept registrations, started rooms only serve logins.
type Status string

const (
	StatusOpen    Status = "open"
	StatusStarted Status = "started"
)

// Input format constraints.
const (
	MinIdentityLen = 2
	MaxIdentityLen = 32
	MinSecretLen   = 6
	MaxSecretLen   = 64
	MaxRoomNameLen = 64
)

// Room represents a single gift exchange and owns its participant store
// exclusively. All field access after construction goes through the mutex.
type Room struct {
	mu sync.Mutex

	id                  string
	name                string
	hostIdentity        string
	hostCredentialProof string
	status              Status
	createdAt           time.Time

	participants participantStore

	logger zerolog.Logger
}

// PublicInfo is the unauthenticated view of a room. It never exposes
// participant identities or key material.
type PublicInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
	Status           Status `json:"status"`
}

// RoomDetails is the authenticated view returned to the host and to
// registrants: room metadata plus per-participant summaries.
type RoomDetails struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	HostIdentity string               `json:"hostIdentity"`
	Status       Status               `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	Participants []ParticipantSummary `json:"participants"`
}

// InitRegisterResult carries the salt a client must derive against before it
// invests CPU time in key derivation.
type InitRegisterResult struct {
	Salt          string `json:"salt"`
	AlreadyExists bool   `json:"alreadyExists"`
}

// RegisterResult reports the outcome of a registration, including the salt
// that was actually persisted (a proposed salt may have been superseded by a
// prior concurrent registration).
type RegisterResult struct {
	AlreadyRegistered bool        `json:"alreadyRegistered"`
	IsHost            bool        `json:"isHost"`
	Salt              string      `json:"salt"`
	Room              RoomDetails `json:"room"`
}

// StartResult reports a successful transition to started.
type StartResult struct {
	Status           Status `json:"status"`
	ParticipantCount int    `json:"participantCount"`
}

// LoginResult carries everything a started-room participant needs to reveal
// their assignment client-side: the salt to re-derive the private key, and the
// ciphertext to decrypt. The service never performs the decryption itself.
type LoginResult struct {
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

// newRoom constructs an open room. Credential proofing and input validation
// happen in Registry.CreateRoom before this is called.
func newRoom(id, name, hostIdentity, hostProof string) *Room {
	return &Room{
		id:                  id,
		name:                name,
		hostIdentity:        hostIdentity,
		hostCredentialProof: hostProof,
		status:              StatusOpen,
		createdAt:           time.Now().UTC(),
		logger:              logx.Logger().With().Str("room_id", id).Logger(),
	}
}

// ID returns the room's immutable identifier.
func (r *Room) ID() string {
	return r.id
}

// PublicInfo returns the unauthenticated room summary.
func (r *Room) PublicInfo() PublicInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	return PublicInfo{
		ID:               r.id,
		Name:             r.name,
		ParticipantCount: r.participants.len(),
		Status:           r.status,
	}
}

// InitRegister is the read-mostly precursor to Register. It returns the salt
// the identity must derive against, without creating a participant for a new
// identity, so an abandoned registration wastes no room capacity.
//
// For an existing identity the secret is verified first: handing out a
// stranger's salt would confirm which salt belongs to a claimed name.
func (r *Room) InitRegister(identity, secret string) (InitRegisterResult, *errs.CustomError) {
	if customErr := validateCredentials(identity, secret); customErr != nil {
		return InitRegisterResult{}, customErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusOpen {
		return InitRegisterResult{}, errs.NewError(errs.ErrRoomStateConflict, r.status)
	}

	if p := r.participants.get(identity); p != nil {
		if !cryptox.VerifyProof(p.CredentialProof, identity, secret) {
			return InitRegisterResult{}, errs.NewError(errs.ErrInvalidCredentials)
		}
		return InitRegisterResult{Salt: p.DerivationSalt, AlreadyExists: true}, nil
	}

	// The host's name is claimable only with the host secret, even before the
	// host has a participant record.
	if identity == r.hostIdentity && !cryptox.VerifyProof(r.hostCredentialProof, identity, secret) {
		return InitRegisterResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}

	salt, err := randx.Salt()
	if err != nil {
		return InitRegisterResult{}, errs.NewError(errs.ErrCryptoFailure, err)
	}

	return InitRegisterResult{Salt: salt, AlreadyExists: false}, nil
}

// Register adds a participant to an open room, or idempotently re-registers an
// existing one after re-verifying their secret. The salt actually persisted is
// always reported back; for an existing participant that is the original salt,
// regardless of what the client proposed.
func (r *Room) Register(identity, secret, publicKeyPEM, proposedSalt string) (RegisterResult, *errs.CustomError) {
	if customErr := validateCredentials(identity, secret); customErr != nil {
		return RegisterResult{}, customErr
	}

	if publicKeyPEM != "" {
		if _, err := cryptox.ParsePublicKey(publicKeyPEM); err != nil {
			return RegisterResult{}, errs.NewError(errs.ErrInvalidParams)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusOpen {
		return RegisterResult{}, errs.NewError(errs.ErrRoomStateConflict, r.status)
	}

	isHost := identity == r.hostIdentity

	if p := r.participants.get(identity); p != nil {
		if !cryptox.VerifyProof(p.CredentialProof, identity, secret) {
			return RegisterResult{}, errs.NewError(errs.ErrInvalidCredentials)
		}

		// Verified re-registration: adopt a newly supplied public key (the
		// first attempt may have failed after partial registration) but keep
		// the original salt so the same secret reproduces the same keypair.
		if publicKeyPEM != "" && publicKeyPEM != p.PublicKey {
			p.PublicKey = publicKeyPEM
			r.logger.Info().Str("identity", identity).Msg("Participant public key updated on re-registration.")
		}

		return RegisterResult{
			AlreadyRegistered: true,
			IsHost:            isHost,
			Salt:              p.DerivationSalt,
			Room:              r.detailsLocked(),
		}, nil
	}

	if isHost {
		// First-time host registration: the host joins as a normal participant
		// (dual role), authenticated against the room's host proof.
		if !cryptox.VerifyProof(r.hostCredentialProof, identity, secret) {
			return RegisterResult{}, errs.NewError(errs.ErrInvalidCredentials)
		}
	}

	salt := proposedSalt
	if !randx.IsValidSalt(salt) {
		fresh, err := randx.Salt()
		if err != nil {
			return RegisterResult{}, errs.NewError(errs.ErrCryptoFailure, err)
		}
		salt = fresh
	}

	proof, err := cryptox.NewProof(identity, secret)
	if err != nil {
		return RegisterResult{}, errs.NewError(errs.ErrCryptoFailure, err)
	}

	r.participants.add(&Participant{
		Identity:        identity,
		CredentialProof: proof,
		PublicKey:       publicKeyPEM,
		DerivationSalt:  salt,
		JoinedAt:        time.Now().UTC(),
	})

	r.logger.Info().
		Str("identity", identity).
		Bool("is_host", isHost).
		Int("participant_count", r.participants.len()).
		Msg("Participant registered.")

	return RegisterResult{
		AlreadyRegistered: false,
		IsHost:            isHost,
		Salt:              salt,
		Room:              r.detailsLocked(),
	}, nil
}

// Start verifies the host, generates a derangement over the participant set,
// encrypts each receiver's identity under the giver's public key, and flips
// the room to started. The operation is all-or-nothing: any encryption failure
// aborts without committing a single ciphertext, and the plaintext assignment
// map never outlives this call.
func (r *Room) Start(hostIdentity, hostSecret string) (StartResult, *errs.CustomError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customErr := r.verifyHostLocked(hostIdentity, hostSecret); customErr != nil {
		return StartResult{}, customErr
	}

	if r.status != StatusOpen {
		return StartResult{}, errs.NewError(errs.ErrRoomStateConflict, r.status)
	}

	if r.participants.len() < 2 {
		return StartResult{}, errs.NewError(errs.ErrNotEnoughParticipants)
	}

	for _, p := range r.participants.list {
		if p.PublicKey == "" {
			return StartResult{}, errs.NewError(errs.ErrParticipantKeyMissing)
		}
	}

	rng, err := randx.CryptoSeededRand()
	if err != nil {
		return StartResult{}, errs.NewError(errs.ErrCryptoFailure, err)
	}

	assignment, err := GenerateDerangement(r.participants.identities(), rng)
	if err != nil {
		return StartResult{}, errs.NewError(errs.ErrCryptoFailure, err)
	}

	// Stage every ciphertext before committing any, so an interrupted or
	// failed start leaves the room cleanly retryable from open.
	staged := make(map[string]string, len(assignment))
	for _, p := range r.participants.list {
		receiver := assignment[p.Identity]

		ciphertext, err := cryptox.Encrypt(receiver, p.PublicKey)
		if err != nil {
			r.logger.Error().Err(err).Str("identity", p.Identity).Msg("Assignment encryption failed. Aborting start.")
			return StartResult{}, errs.NewError(errs.ErrCryptoFailure, err)
		}
		staged[p.Identity] = ciphertext
	}

	for _, p := range r.participants.list {
		p.Ciphertext = staged[p.Identity]
	}
	r.status = StatusStarted

	r.logger.Info().
		Int("participant_count", r.participants.len()).
		Msg("Room started. Assignments generated and sealed.")

	return StartResult{Status: r.status, ParticipantCount: r.participants.len()}, nil
}

// Login verifies a participant of a started room and hands back their salt and
// ciphertext. Key derivation and decryption happen client-side; no plaintext
// assignment ever crosses this boundary.
func (r *Room) Login(identity, secret string) (LoginResult, *errs.CustomError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusStarted {
		return LoginResult{}, errs.NewError(errs.ErrRoomStateConflict, r.status)
	}

	p := r.participants.get(identity)
	if p == nil || !cryptox.VerifyProof(p.CredentialProof, identity, secret) {
		// A missing name and a wrong secret are deliberately the same outcome.
		return LoginResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}

	return LoginResult{Salt: p.DerivationSalt, Ciphertext: p.Ciphertext}, nil
}

// RemoveParticipant lets the verified host drop a participant from an open
// room. The host cannot remove themselves.
func (r *Room) RemoveParticipant(hostIdentity, hostSecret, targetIdentity string) ([]ParticipantSummary, *errs.CustomError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customErr := r.verifyHostLocked(hostIdentity, hostSecret); customErr != nil {
		return nil, customErr
	}

	if r.status != StatusOpen {
		return nil, errs.NewError(errs.ErrRoomStateConflict, r.status)
	}

	if targetIdentity == r.hostIdentity {
		return nil, errs.NewError(errs.ErrHostNotRemovable)
	}

	if !r.participants.remove(targetIdentity) {
		return nil, errs.NewError(errs.ErrParticipantNotFound)
	}

	r.logger.Info().
		Str("identity", targetIdentity).
		Int("participant_count", r.participants.len()).
		Msg("Participant removed by host.")

	return r.participants.summaries(), nil
}

// HostAuthenticate re-authenticates the host in either state and returns the
// room details. Read-only.
func (r *Room) HostAuthenticate(identity, secret string) (RoomDetails, *errs.CustomError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customErr := r.verifyHostLocked(identity, secret); customErr != nil {
		return RoomDetails{}, customErr
	}

	return r.detailsLocked(), nil
}

// verifyHostLocked checks host identity and secret against the room's host
// proof. Mismatches collapse to one generic credential error.
func (r *Room) verifyHostLocked(identity, secret string) *errs.CustomError {
	if identity != r.hostIdentity || !cryptox.VerifyProof(r.hostCredentialProof, identity, secret) {
		return errs.NewError(errs.ErrInvalidCredentials)
	}
	return nil
}

func (r *Room) detailsLocked() RoomDetails {
	return RoomDetails{
		ID:           r.id,
		Name:         r.name,
		HostIdentity: r.hostIdentity,
		Status:       r.status,
		CreatedAt:    r.createdAt,
		Participants: r.participants.summaries(),
	}
}

// validateCredentials applies the format constraints shared by every
// credential-bearing operation.
func validateCredentials(identity, secret string) *errs.CustomError {
	idLen := utf8.RuneCountInString(identity)
	if idLen < MinIdentityLen || idLen > MaxIdentityLen {
		return errs.NewError(errs.ErrIdentityInvalid, MinIdentityLen, MaxIdentityLen)
	}

	secretLen := utf8.RuneCountInString(secret)
	if secretLen < MinSecretLen || secretLen > MaxSecretLen {
		return errs.NewError(errs.ErrSecretInvalid, MinSecretLen, MaxSecretLen)
	}

	return nil
}

// sanitizeRoomName trims surrounding whitespace and validates the bounded length.
func sanitizeRoomName(name string) (string, *errs.CustomError) {
	name = strings.TrimSpace(name)

	nameLen := utf8.RuneCountInString(name)
	if nameLen == 0 || nameLen > MaxRoomNameLen {
		return "", errs.NewError(errs.ErrRoomNameInvalid, MaxRoomNameLen)
	}

	return name, nil
}

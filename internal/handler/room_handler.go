/*
Package handler provides HTTP handler functions for the room lifecycle:
creation, public info, the two-step registration flow, host operations, and
assignment login.

Handlers translate transport concerns (JSON binding, URL params, status codes)
and delegate every decision to the exchange core. Mutating handlers flush the
registry to durable storage after a successful commit.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secretsanta/internal/app/exchange"
	"secretsanta/internal/pkg/errs"
	"secretsanta/internal/pkg/req"
	"secretsanta/internal/pkg/resp"
)

// lookupRoom resolves the {roomID} URL parameter. A malformed id and an
// unknown id are the same not-found outcome.
func lookupRoom(deps *AppDeps, w http.ResponseWriter, r *http.Request) (*exchange.Room, bool) {
	roomID := chi.URLParam(r, "roomID")

	room := deps.Registry.GetRoom(roomID)
	if room == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
		return nil, false
	}

	return room, true
}

type CreateRoomInput struct {
	Name         string `json:"name"`
	HostIdentity string `json:"hostIdentity"`
	HostSecret   string `json:"hostSecret"`
	AutoJoin     bool   `json:"autoJoin,omitempty"`
}

// HandleCreateRoom creates a new open room and returns its id, a shareable
// URL, and the room summary.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		room, customErr := deps.Registry.CreateRoom(input.Name, input.HostIdentity, input.HostSecret, input.AutoJoin)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Registry.Flush()

		resp.RespondSuccess(w, r, map[string]any{
			"roomId":       room.ID(),
			"shareableUrl": deps.Config.BaseURL + "/room/" + room.ID(),
			"room":         room.PublicInfo(),
		})
	}
}

// HandleRoomInfo returns the unauthenticated room summary: id, name,
// participant count and status. Never identities or keys.
func HandleRoomInfo(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		resp.RespondSuccess(w, r, room.PublicInfo())
	}
}

type InitRegisterInput struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// HandleInitRegister returns the derivation salt for an identity before the
// client invests CPU time in key derivation. No participant is created.
func HandleInitRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input InitRegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, customErr := room.InitRegister(input.Identity, input.Secret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

type RegisterInput struct {
	Identity  string `json:"identity"`
	Secret    string `json:"secret"`
	PublicKey string `json:"publicKey,omitempty"`
	Salt      string `json:"salt,omitempty"`
}

// HandleRegister registers a participant (or idempotently re-registers an
// existing one) in an open room.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, customErr := room.Register(input.Identity, input.Secret, input.PublicKey, input.Salt)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Registry.Flush()

		resp.RespondSuccess(w, r, result)
	}
}

type HostAuthInput struct {
	HostIdentity string `json:"hostIdentity"`
	HostSecret   string `json:"hostSecret"`
}

// HandleHostAuthenticate re-authenticates the host and returns room details
// with a per-participant assignment flag. Read-only, available in either state.
func HandleHostAuthenticate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input HostAuthInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		details, customErr := room.HostAuthenticate(input.HostIdentity, input.HostSecret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, details)
	}
}

type RemoveParticipantInput struct {
	HostIdentity   string `json:"hostIdentity"`
	HostSecret     string `json:"hostSecret"`
	TargetIdentity string `json:"targetIdentity"`
}

// HandleRemoveParticipant lets the verified host drop a participant from an
// open room.
func HandleRemoveParticipant(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input RemoveParticipantInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		remaining, customErr := room.RemoveParticipant(input.HostIdentity, input.HostSecret, input.TargetIdentity)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Registry.Flush()

		resp.RespondSuccess(w, r, map[string]any{
			"participants": remaining,
		})
	}
}

// HandleStartRoom runs the assignment draw: the verified host triggers
// derangement generation and per-participant encryption, and the room flips to
// started.
func HandleStartRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input HostAuthInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, customErr := room.Start(input.HostIdentity, input.HostSecret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		deps.Registry.Flush()

		resp.RespondSuccess(w, r, result)
	}
}

type LoginInput struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// HandleLogin verifies a participant of a started room and returns their salt
// and ciphertext for client-side reveal.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := lookupRoom(deps, w, r)
		if !ok {
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, customErr := room.Login(input.Identity, input.Secret)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, result)
	}
}

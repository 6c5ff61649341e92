/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room Lifecycle and Validation Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrRoomNameInvalid:       {Code: ErrRoomNameInvalid, Message: "Room name must be between 1 and %d characters.", Status: http.StatusBadRequest},
	ErrIdentityInvalid:       {Code: ErrIdentityInvalid, Message: "Name must be between %d and %d characters.", Status: http.StatusBadRequest},
	ErrSecretInvalid:         {Code: ErrSecretInvalid, Message: "Password must be between %d and %d characters.", Status: http.StatusBadRequest},
	ErrRoomStateConflict:     {Code: ErrRoomStateConflict, Message: "This action is not available while the room is %s.", Status: http.StatusConflict},
	ErrNotEnoughParticipants: {Code: ErrNotEnoughParticipants, Message: "At least two participants are required to draw names.", Status: http.StatusBadRequest},
	ErrParticipantKeyMissing: {Code: ErrParticipantKeyMissing, Message: "Some participants have not finished signing up yet.", Status: http.StatusBadRequest},
	ErrParticipantNotFound:   {Code: ErrParticipantNotFound, Message: "Participant not found.", Status: http.StatusNotFound},
	ErrHostNotRemovable:      {Code: ErrHostNotRemovable, Message: "The host cannot be removed from their own room.", Status: http.StatusBadRequest},

	// 3xxx: Authentication Errors
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect name or password.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrCryptoFailure: {Code: ErrCryptoFailure, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}

/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room Lifecycle and Validation Errors
const (
	// ErrRoomNotFound indicates that the requested room id does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomNameInvalid indicates that the room name is empty or too long.
	ErrRoomNameInvalid = 2102

	// ErrIdentityInvalid indicates that a participant name fails the format constraints.
	ErrIdentityInvalid = 2103

	// ErrSecretInvalid indicates that a password fails the length constraints.
	ErrSecretInvalid = 2104

	// ErrRoomStateConflict indicates an operation that is illegal in the room's current status.
	// The message names the current status.
	ErrRoomStateConflict = 2105

	// ErrNotEnoughParticipants indicates a start attempt with fewer than two participants.
	ErrNotEnoughParticipants = 2106

	// ErrParticipantKeyMissing indicates a start attempt while a participant has not
	// finished registration (no public key on record).
	ErrParticipantKeyMissing = 2107

	// ErrParticipantNotFound indicates that the named participant does not exist in the room.
	ErrParticipantNotFound = 2108

	// ErrHostNotRemovable indicates an attempt to remove the host from their own room.
	ErrHostNotRemovable = 2109
)

// 3xxx: Authentication Errors
const (
	// ErrInvalidCredentials indicates a credential proof mismatch. The message is
	// deliberately generic so callers cannot distinguish an unknown name from a
	// wrong password.
	ErrInvalidCredentials = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrCryptoFailure indicates that key derivation, assignment generation or
	// encryption failed unexpectedly. The whole request aborts; nothing commits.
	ErrCryptoFailure = 5001
)

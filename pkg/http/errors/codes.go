package errors

// Error and reason codes for standardized responses. The friend-protocol
// reason codes double as observability labels, so they never change shape.
const (
	// Authentication errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInvalidToken = "invalid_token"

	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeMissingField   = "missing_field"

	// Friend request protocol outcomes
	ReasonCreated             = "created"
	ReasonPlayerNotFound      = "player_not_found"
	ReasonAlreadyFriends      = "already_friends"
	ReasonPendingFresh        = "pending_fresh"
	ReasonPendingReplaced     = "pending_replaced"
	ReasonReversePending      = "reverse_pending"
	ReasonReverseAutoAccepted = "reverse_auto_accepted"
	ReasonRateLimited         = "rate_limited"
	ReasonRequestNotFound     = "request_not_found"
	ReasonNotFriends          = "not_friends"
	ReasonAccepted            = "accepted"
	ReasonRejected            = "rejected"
	ReasonRemoved             = "removed"
	ReasonSynced              = "synced"

	// Room / matchmaking errors
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodeChallengeNotFound = "challenge_not_found"
	ErrCodeChallengerOffline = "challenger_offline"
	ErrCodeTargetOffline     = "target_offline"
	ErrCodeInvalidDifficulty = "invalid_difficulty"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeStorageUnavailable = "storage_unavailable"
)

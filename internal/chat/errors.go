package chat

import "errors"

// Error taxonomy surfaced to the API layer; handlers map these to
// HTTP statuses and envelope codes.
var (
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrSelfChat           = errors.New("chat with self not allowed")
	ErrChatNotFound       = errors.New("chat not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotAParticipant    = errors.New("not a participant")
	ErrEmptyContent       = errors.New("empty content")
)

package handlers

const (
	ErrInvalidRequest        = "Invalid request body"
	ErrUnauthorized          = "Unauthorized"
	ErrInternalServerError   = "Internal server error"
	ErrCollectionNotFound    = "Collection not found"
	ErrNoSession             = "No active session"
	ErrTooManyRequests       = "Too many requests"
	ErrGenerationUnavailable = "Generation is not configured"
	ErrSpeechUnavailable     = "Speech is not configured"

	maxUploadSize = 10 << 20
)

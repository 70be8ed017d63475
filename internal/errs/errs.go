package errs

import "errors"

// Доменные сентинель-ошибки для маппинга в HTTP/WebSocket коды в handlers.
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")

	ErrDuplicateSession  = errors.New("session already active for token")
	ErrRecordingNotFound = errors.New("recording not found")
)

package model

import "time"

// TokenStatus represents the lifecycle state of a recording token.
type TokenStatus string

const (
	TokenStatusPending   TokenStatus = "pending"
	TokenStatusRecording TokenStatus = "recording"
	TokenStatusCompleted TokenStatus = "completed"
	TokenStatusExpired   TokenStatus = "expired"
)

// Token — одноразовый инвайт-токен участника (одна запись = один JSON-файл).
// Никогда не удаляется: завершённые и истёкшие токены остаются как аудит.
type Token struct {
	Token       string      `json:"token"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	SessionName string      `json:"session_name"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Status      TokenStatus `json:"status"`

	// Filled in when the recording completes.
	RecordingFile     string   `json:"recording_file,omitempty"`
	RecordingSize     int64    `json:"recording_size,omitempty"`
	RecordingDuration *float64 `json:"recording_duration_sec,omitempty"`

	EmailSent bool `json:"email_sent"`
}

// Expired reports whether the token's validity window has elapsed at now.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// ParticipantCreate is one participant entry in CreateSessionRequest.
type ParticipantCreate struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
}

// CreateSessionRequest is the request body for POST /api/sessions.
type CreateSessionRequest struct {
	SessionName  string              `json:"session_name" binding:"required"`
	Participants []ParticipantCreate `json:"participants" binding:"required,min=1,dive"`
	SendEmails   bool                `json:"send_emails"`
}

// ParticipantInvite is one issued invite in CreateSessionResponse.
type ParticipantInvite struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Token     string `json:"token"`
	Link      string `json:"link"`
	FullLink  string `json:"full_link"`
	EmailSent bool   `json:"email_sent"`
}

// CreateSessionResponse is the response for POST /api/sessions.
type CreateSessionResponse struct {
	SessionName  string              `json:"session_name"`
	Participants []ParticipantInvite `json:"participants"`
}

// QuickInviteRequest is the request body for POST /api/invite.
type QuickInviteRequest struct {
	Email       string `json:"email" binding:"required"`
	Name        string `json:"name"`
	SessionName string `json:"session_name"`
}

// QuickInviteResponse is the response for POST /api/invite.
type QuickInviteResponse struct {
	ParticipantInvite
	EmailConfigured bool `json:"email_configured"`
}

// TokenListResponse is the response for GET /api/tokens.
type TokenListResponse struct {
	Tokens []Token `json:"tokens"`
}

package model

import "time"

// Recording is the API view of one finished recording file plus the
// participant metadata recovered from its token record.
type Recording struct {
	Filename         string    `json:"filename"`
	SizeBytes        int64     `json:"size_bytes"`
	Created          time.Time `json:"created"`
	ParticipantName  string    `json:"participant_name"`
	ParticipantEmail string    `json:"participant_email"`
	SessionName      string    `json:"session_name"`
	DurationSec      *float64  `json:"duration_sec"`
}

// RecordingListResponse is the response for GET /api/recordings.
type RecordingListResponse struct {
	Recordings []Recording `json:"recordings"`
}

// ActiveSession is the API view of one live streaming connection.
type ActiveSession struct {
	Token        string    `json:"token"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SessionName  string    `json:"session_name"`
	File         string    `json:"file"`
	Started      time.Time `json:"started"`
	LastActivity time.Time `json:"last_activity"`
	Chunks       int       `json:"chunks"`
	Bytes        int64     `json:"bytes"`
}

// ActiveSessionsResponse is the response for GET /api/active.
type ActiveSessionsResponse struct {
	Active []ActiveSession `json:"active"`
}

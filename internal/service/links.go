package service

import "fmt"

// Links builds the URLs embedded in invites and API responses.
type Links struct {
	// BaseURL is the public HTTP origin (e.g. https://record.example.com).
	BaseURL string
	// WSBaseURL is the WebSocket origin (e.g. wss://record.example.com);
	// falls back to a relative path when empty.
	WSBaseURL string
}

// RecordPath returns the relative record-page path for a token.
func (l *Links) RecordPath(token string) string {
	return fmt.Sprintf("/record/%s", token)
}

// RecordURL returns the absolute invite link for a token.
func (l *Links) RecordURL(token string) string {
	return trimSlash(l.BaseURL) + l.RecordPath(token)
}

// WSURL returns the streaming channel URL for a token.
func (l *Links) WSURL(token string) string {
	if l == nil || l.WSBaseURL == "" {
		return fmt.Sprintf("/ws/audio/%s", token)
	}
	return fmt.Sprintf("%s/ws/audio/%s", trimSlash(l.WSBaseURL), token)
}

func trimSlash(base string) string {
	if base != "" && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base
}

package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
)

// ActiveSession is the live state of one streaming connection. It exists
// only between a successful token validation and finalize; durable state
// lives in the token record and the WAV file.
type ActiveSession struct {
	Token        string
	Name         string
	Email        string
	SessionName  string
	Filename     string
	StartedAt    time.Time
	LastActivity time.Time
	Chunks       int
	Bytes        int64
}

// Registry tracks active streaming sessions by token identifier. It is
// owned by the application and passed by reference to the WebSocket
// handler. A second Register for the same token is rejected alongside
// the token store's single-use transition.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*ActiveSession
	log      *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*ActiveSession),
		log:      log,
	}
}

// Register adds a session for the token. Fails with ErrDuplicateSession
// if one is already present, leaving the existing session untouched.
func (r *Registry) Register(s *ActiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.Token]; exists {
		r.log.Warn("duplicate session registration rejected",
			zap.String("token", s.Token))
		return errs.ErrDuplicateSession
	}
	r.sessions[s.Token] = s

	r.log.Info("session registered",
		zap.String("token", s.Token),
		zap.String("participant", s.Name),
		zap.String("session_name", s.SessionName),
		zap.String("file", s.Filename))
	return nil
}

// Touch records one received frame: bumps counters and last activity.
func (r *Registry) Touch(token string, frameBytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return
	}
	s.Chunks++
	s.Bytes += int64(frameBytes)
	s.LastActivity = time.Now()
}

// Unregister removes the session for the token, if present.
func (r *Registry) Unregister(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return
	}
	delete(r.sessions, token)

	r.log.Info("session unregistered",
		zap.String("token", token),
		zap.String("participant", s.Name),
		zap.Int("chunks", s.Chunks),
		zap.Int64("bytes", s.Bytes),
		zap.Duration("duration", time.Since(s.StartedAt)))
}

// ListActive returns a snapshot of all active sessions for monitoring.
func (r *Registry) ListActive() []model.ActiveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ActiveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, model.ActiveSession{
			Token:        s.Token,
			Name:         s.Name,
			Email:        s.Email,
			SessionName:  s.SessionName,
			File:         s.Filename,
			Started:      s.StartedAt,
			LastActivity: s.LastActivity,
			Chunks:       s.Chunks,
			Bytes:        s.Bytes,
		})
	}
	return out
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

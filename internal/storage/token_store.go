package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
)

// tokenIDLength is the length of the hex token identifier embedded in
// invite links.
const tokenIDLength = 16

// TokenStore persists one JSON record per issued token under dir.
// Records are never deleted; completed and expired tokens remain as an
// audit trail. All status transitions go through the store mutex, so
// concurrent ValidateAndConsume calls on the same identifier observe
// "pending" at most once.
type TokenStore struct {
	dir    string
	expiry time.Duration

	mu  sync.Mutex // guards read-modify-write cycles on token records
	now func() time.Time
}

// NewTokenStore creates the token directory if needed and returns a store.
func NewTokenStore(dir string, expiry time.Duration) (*TokenStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("token store: mkdir %s: %w", dir, err)
	}
	return &TokenStore{dir: dir, expiry: expiry, now: time.Now}, nil
}

func (s *TokenStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// newTokenID returns an unguessable fixed-length identifier. uuid.New
// draws from crypto/rand; the dashes are stripped and the hex truncated
// to keep invite links short.
func newTokenID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return raw[:tokenIDLength]
}

// Issue generates a new pending token for the participant and persists it.
func (s *TokenStore) Issue(email, name, sessionName string) (*model.Token, error) {
	if name == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	now := s.now().UTC()
	tok := &model.Token{
		Token:       newTokenID(),
		Email:       email,
		Name:        name,
		SessionName: sessionName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.expiry),
		Status:      model.TokenStatusPending,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Get returns the raw token record without validation (admin views).
func (s *TokenStore) Get(id string) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// ValidateAndConsume atomically checks the token and transitions it
// pending -> recording. Exactly one caller can win; every later attempt
// fails with ErrTokenAlreadyUsed regardless of status. Expiry is checked
// on every call, independent of status.
func (s *TokenStore) ValidateAndConsume(id string) (*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if tok.Expired(s.now()) {
		if tok.Status == model.TokenStatusPending {
			tok.Status = model.TokenStatusExpired
			_ = s.save(tok)
		}
		return nil, errs.ErrTokenExpired
	}
	if tok.Status != model.TokenStatusPending {
		return nil, errs.ErrTokenAlreadyUsed
	}
	tok.Status = model.TokenStatusRecording
	if err := s.save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// MarkCompleted records the terminal completed status plus the recording
// metadata. Idempotent: repeating the call rewrites the same state.
func (s *TokenStore) MarkCompleted(id, recordingFile string, size int64, durationSec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.load(id)
	if err != nil {
		return err
	}
	tok.Status = model.TokenStatusCompleted
	tok.RecordingFile = recordingFile
	tok.RecordingSize = size
	tok.RecordingDuration = &durationSec
	return s.save(tok)
}

// MarkExpired records the terminal expired status. A completed token
// stays completed; repeating the call is a no-op.
func (s *TokenStore) MarkExpired(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.load(id)
	if err != nil {
		return err
	}
	if tok.Status == model.TokenStatusCompleted || tok.Status == model.TokenStatusExpired {
		return nil
	}
	tok.Status = model.TokenStatusExpired
	return s.save(tok)
}

// SetEmailSent updates the email delivery flag on a token record.
func (s *TokenStore) SetEmailSent(id string, sent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.load(id)
	if err != nil {
		return err
	}
	tok.EmailSent = sent
	return s.save(tok)
}

// List returns a snapshot of all token records, newest first. Pending
// tokens past their expiry are lazily flipped to expired on the way out.
func (s *TokenStore) List() ([]model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("token store: read dir: %w", err)
	}
	now := s.now()
	tokens := make([]model.Token, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		tok, err := s.load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue // skip unreadable records, keep the listing usable
		}
		if tok.Status == model.TokenStatusPending && tok.Expired(now) {
			tok.Status = model.TokenStatusExpired
			_ = s.save(tok)
		}
		tokens = append(tokens, *tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (s *TokenStore) load(id string) (*model.Token, error) {
	if id == "" || id != filepath.Base(id) {
		return nil, errs.ErrTokenNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrTokenNotFound
		}
		return nil, fmt.Errorf("token store: read %s: %w", id, err)
	}
	var tok model.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("token store: decode %s: %w", id, err)
	}
	return &tok, nil
}

func (s *TokenStore) save(tok *model.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("token store: encode %s: %w", tok.Token, err)
	}
	if err := os.WriteFile(s.path(tok.Token), data, 0o644); err != nil {
		return fmt.Errorf("token store: write %s: %w", tok.Token, err)
	}
	return nil
}

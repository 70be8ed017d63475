package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	s, err := NewTokenStore(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)
	return s
}

func TestIssueAndGet(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "StandupSession")
	require.NoError(t, err)
	require.Len(t, tok.Token, tokenIDLength)
	require.Equal(t, model.TokenStatusPending, tok.Status)
	require.Equal(t, "Alice", tok.Name)
	require.Equal(t, tok.CreatedAt.Add(24*time.Hour), tok.ExpiresAt)

	got, err := s.Get(tok.Token)
	require.NoError(t, err)
	require.Equal(t, tok.Token, got.Token)
	require.Equal(t, "StandupSession", got.SessionName)
}

func TestIssueDerivesNameFromEmail(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("bob@example.com", "", "Sync")
	require.NoError(t, err)
	require.Equal(t, "bob", tok.Name)
}

func TestValidateAndConsumeSingleUse(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)

	got, err := s.ValidateAndConsume(tok.Token)
	require.NoError(t, err)
	require.Equal(t, model.TokenStatusRecording, got.Status)

	// Any later attempt is rejected, whatever the status.
	_, err = s.ValidateAndConsume(tok.Token)
	require.ErrorIs(t, err, errs.ErrTokenAlreadyUsed)

	require.NoError(t, s.MarkCompleted(tok.Token, "file.wav", 1234, 0.5))
	_, err = s.ValidateAndConsume(tok.Token)
	require.ErrorIs(t, err, errs.ErrTokenAlreadyUsed)
}

func TestValidateAndConsumeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ValidateAndConsume("deadbeefdeadbeef")
	require.ErrorIs(t, err, errs.ErrTokenNotFound)

	// Path-escaping identifiers must not reach the filesystem.
	_, err = s.ValidateAndConsume("../outside")
	require.ErrorIs(t, err, errs.ErrTokenNotFound)
}

func TestValidateAndConsumeExpired(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)

	// Jump the store clock past the validity window.
	s.now = func() time.Time { return tok.ExpiresAt.Add(time.Minute) }

	_, err = s.ValidateAndConsume(tok.Token)
	require.ErrorIs(t, err, errs.ErrTokenExpired)

	got, err := s.Get(tok.Token)
	require.NoError(t, err)
	require.Equal(t, model.TokenStatusExpired, got.Status)

	// Expired stays expired on retry.
	_, err = s.ValidateAndConsume(tok.Token)
	require.ErrorIs(t, err, errs.ErrTokenExpired)
}

func TestValidateAndConsumeConcurrent(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.ValidateAndConsume(tok.Token)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, errs.ErrTokenAlreadyUsed)
			losses++
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent caller may consume the token")
	require.Equal(t, attempts-1, losses)
}

func TestMarkCompleted(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)
	_, err = s.ValidateAndConsume(tok.Token)
	require.NoError(t, err)

	require.NoError(t, s.MarkCompleted(tok.Token, "Standup_Alice_20260830_120000.wav", 12044, 0.125))

	got, err := s.Get(tok.Token)
	require.NoError(t, err)
	require.Equal(t, model.TokenStatusCompleted, got.Status)
	require.Equal(t, "Standup_Alice_20260830_120000.wav", got.RecordingFile)
	require.Equal(t, int64(12044), got.RecordingSize)
	require.NotNil(t, got.RecordingDuration)
	require.Equal(t, 0.125, *got.RecordingDuration)
}

func TestMarkExpiredIdempotent(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)

	require.NoError(t, s.MarkExpired(tok.Token))
	require.NoError(t, s.MarkExpired(tok.Token))

	got, err := s.Get(tok.Token)
	require.NoError(t, err)
	require.Equal(t, model.TokenStatusExpired, got.Status)

	// Completed is terminal: MarkExpired must not downgrade it.
	tok2, err := s.Issue("bob@example.com", "Bob", "Standup")
	require.NoError(t, err)
	_, err = s.ValidateAndConsume(tok2.Token)
	require.NoError(t, err)
	require.NoError(t, s.MarkCompleted(tok2.Token, "f.wav", 44, 0))
	require.NoError(t, s.MarkExpired(tok2.Token))
	got2, err := s.Get(tok2.Token)
	require.NoError(t, err)
	require.Equal(t, model.TokenStatusCompleted, got2.Status)
}

func TestListMarksExpiredLazily(t *testing.T) {
	s := newTestStore(t)

	fresh, err := s.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)

	stale, err := s.Issue("bob@example.com", "Bob", "Standup")
	require.NoError(t, err)

	s.now = func() time.Time { return stale.ExpiresAt.Add(time.Minute) }
	// Re-issue a fresh one under the shifted clock so it is not expired.
	fresh2, err := s.Issue("carol@example.com", "Carol", "Standup")
	require.NoError(t, err)

	tokens, err := s.List()
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	byID := map[string]model.TokenStatus{}
	for _, tok := range tokens {
		byID[tok.Token] = tok.Status
	}
	require.Equal(t, model.TokenStatusExpired, byID[fresh.Token])
	require.Equal(t, model.TokenStatusExpired, byID[stale.Token])
	require.Equal(t, model.TokenStatusPending, byID[fresh2.Token])

	// Newest first.
	require.Equal(t, fresh2.Token, tokens[0].Token)
}

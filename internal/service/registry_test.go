package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
)

func newSession(token string) *ActiveSession {
	now := time.Now()
	return &ActiveSession{
		Token:        token,
		Name:         "Alice",
		Email:        "alice@example.com",
		SessionName:  "Standup",
		Filename:     "Standup_Alice_20260830_120000.wav",
		StartedAt:    now,
		LastActivity: now,
	}
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(newSession("tok1")))
	require.NoError(t, r.Register(newSession("tok2")))
	require.Equal(t, 2, r.Count())

	active := r.ListActive()
	require.Len(t, active, 2)
	tokens := map[string]bool{}
	for _, s := range active {
		tokens[s.Token] = true
		require.Equal(t, "Alice", s.Name)
	}
	require.True(t, tokens["tok1"])
	require.True(t, tokens["tok2"])
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	first := newSession("tok1")
	require.NoError(t, r.Register(first))

	err := r.Register(newSession("tok1"))
	require.ErrorIs(t, err, errs.ErrDuplicateSession)

	// The original session is untouched.
	require.Equal(t, 1, r.Count())
	active := r.ListActive()
	require.Equal(t, first.StartedAt.UTC(), active[0].Started.UTC())
}

func TestRegistryTouch(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(newSession("tok1")))

	before := r.ListActive()[0].LastActivity
	r.Touch("tok1", 4000)
	r.Touch("tok1", 2000)
	r.Touch("missing", 1000) // no-op

	active := r.ListActive()[0]
	require.Equal(t, 2, active.Chunks)
	require.Equal(t, int64(6000), active.Bytes)
	require.False(t, active.LastActivity.Before(before))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(newSession("tok1")))

	r.Unregister("tok1")
	r.Unregister("tok1") // idempotent
	require.Equal(t, 0, r.Count())

	// Token can be registered again after unregister (the token store,
	// not the registry, enforces single use).
	require.NoError(t, r.Register(newSession("tok1")))
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/audio"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/handler"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/mailer"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/metrics"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/router"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

type apiTestEnv struct {
	tokens    *storage.TokenStore
	registry  *service.Registry
	uploadDir string
	srv       *httptest.Server
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()

	logger := zap.NewNop()
	tokens, err := storage.NewTokenStore(t.TempDir(), 24*time.Hour)
	require.NoError(t, err)
	uploadDir := t.TempDir()
	index, err := storage.NewRecordingIndex(uploadDir, tokens)
	require.NoError(t, err)
	registry := service.NewRegistry(logger)
	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	mail := mailer.NewClient("", "noreply@example.com", logger)
	links := &service.Links{BaseURL: "http://localhost:8000"}

	ws := handler.NewAudioWSHandler(tokens, registry, m, handler.StreamOptions{
		UploadDir:   uploadDir,
		Format:      audio.Format{SampleRate: 48000, Channels: 1, BitsPerSample: 16},
		IdleTimeout: 5 * time.Second,
	}, logger)
	r := router.New(
		handler.NewTokenHandler(tokens, mail, links, m, 24, logger),
		handler.NewRecordingHandler(index, registry, logger),
		ws,
		handler.NewHealthHandler(),
		promRegistry,
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &apiTestEnv{tokens: tokens, registry: registry, uploadDir: uploadDir, srv: srv}
}

func (e *apiTestEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateSessionIssuesTokenPerParticipant(t *testing.T) {
	env := newAPITestEnv(t)

	resp := env.postJSON(t, "/api/sessions", model.CreateSessionRequest{
		SessionName: "StandupSession",
		Participants: []model.ParticipantCreate{
			{Email: "alice@example.com", Name: "Alice"},
			{Email: "bob@example.com", Name: "Bob"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out model.CreateSessionResponse
	decodeBody(t, resp, &out)
	require.Equal(t, "StandupSession", out.SessionName)
	require.Len(t, out.Participants, 2)
	require.NotEqual(t, out.Participants[0].Token, out.Participants[1].Token)

	for _, p := range out.Participants {
		require.Len(t, p.Token, 16)
		require.Equal(t, "/record/"+p.Token, p.Link)
		require.Equal(t, "http://localhost:8000/record/"+p.Token, p.FullLink)
		require.False(t, p.EmailSent)

		tok, err := env.tokens.Get(p.Token)
		require.NoError(t, err)
		require.Equal(t, model.TokenStatusPending, tok.Status)
		require.Equal(t, "StandupSession", tok.SessionName)
	}
}

func TestCreateSessionRejectsBadRequest(t *testing.T) {
	env := newAPITestEnv(t)

	resp, err := http.Post(env.srv.URL+"/api/sessions", "application/json",
		bytes.NewReader([]byte(`{"participants": "nope"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuickInviteDefaultsSessionName(t *testing.T) {
	env := newAPITestEnv(t)

	resp := env.postJSON(t, "/api/invite", model.QuickInviteRequest{
		Email: "carol@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out model.QuickInviteResponse
	decodeBody(t, resp, &out)
	require.False(t, out.EmailConfigured)
	require.False(t, out.EmailSent)
	// Name falls back to the email local part.
	require.Equal(t, "carol", out.Name)

	tok, err := env.tokens.Get(out.Token)
	require.NoError(t, err)
	require.Equal(t, handler.DefaultSessionNameForTest, tok.SessionName)
}

func TestListTokens(t *testing.T) {
	env := newAPITestEnv(t)

	_, err := env.tokens.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)
	_, err = env.tokens.Issue("bob@example.com", "Bob", "Standup")
	require.NoError(t, err)

	resp, err := http.Get(env.srv.URL + "/api/tokens")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.TokenListResponse
	decodeBody(t, resp, &out)
	require.Len(t, out.Tokens, 2)
}

func TestListAndDownloadRecordings(t *testing.T) {
	env := newAPITestEnv(t)

	// One finished recording on disk, attributed through its token record.
	tok, err := env.tokens.Issue("alice@example.com", "Alice", "Standup")
	require.NoError(t, err)
	filename := storage.RecordingFilename("Standup", "Alice", time.Now().UTC())
	w, err := audio.NewWriter(filepath.Join(env.uploadDir, filename),
		audio.Format{SampleRate: 48000, Channels: 1, BitsPerSample: 16})
	require.NoError(t, err)
	require.NoError(t, w.Append(make([]byte, 9600)))
	info, err := w.Finalize()
	require.NoError(t, err)
	require.NoError(t, env.tokens.MarkCompleted(tok.Token, filename, info.Size, info.Duration))

	resp, err := http.Get(env.srv.URL + "/api/recordings")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.RecordingListResponse
	decodeBody(t, resp, &out)
	require.Len(t, out.Recordings, 1)
	require.Equal(t, filename, out.Recordings[0].Filename)
	require.Equal(t, "Alice", out.Recordings[0].ParticipantName)

	dl, err := http.Get(env.srv.URL + "/api/recordings/" + filename + "/download")
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	require.Equal(t, "audio/wav", dl.Header.Get("Content-Type"))

	want, err := os.ReadFile(filepath.Join(env.uploadDir, filename))
	require.NoError(t, err)
	var got bytes.Buffer
	_, err = got.ReadFrom(dl.Body)
	require.NoError(t, err)
	require.Equal(t, want, got.Bytes())
}

func TestDownloadRecordingNotFound(t *testing.T) {
	env := newAPITestEnv(t)

	resp, err := http.Get(env.srv.URL + "/api/recordings/missing.wav/download")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActiveSessionsEmpty(t *testing.T) {
	env := newAPITestEnv(t)

	resp, err := http.Get(env.srv.URL + "/api/active")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.ActiveSessionsResponse
	decodeBody(t, resp, &out)
	require.Empty(t, out.Active)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/audio"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/metrics"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

// WebSocket close codes sent when a connection attempt is rejected.
const (
	CloseTokenNotFound = 4001
	CloseTokenUsed     = 4002
	CloseTokenExpired  = 4003
)

// closeWriteWait bounds every write on the socket.
const closeWriteWait = 10 * time.Second

// controlMessage is the client-to-server control vocabulary, sent as a
// text frame. Binary frames are raw PCM audio.
type controlMessage struct {
	Type string `json:"type"`
}

const controlStop = "stop"

// serverMessage is everything the server sends back over the socket.
type serverMessage struct {
	Type     string  `json:"type"` // ack | completed | error
	Chunks   int     `json:"chunks,omitempty"`
	Bytes    int64   `json:"bytes,omitempty"`
	File     string  `json:"file,omitempty"`
	Duration float64 `json:"duration_sec,omitempty"`
	Size     int64   `json:"size_bytes,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// StreamOptions carries the per-connection tunables for the audio
// WebSocket endpoint.
type StreamOptions struct {
	UploadDir       string
	Format          audio.Format
	IdleTimeout     time.Duration
	AckInterval     int
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
}

// AudioWSHandler handles the streaming endpoint GET /ws/audio/:token.
// One connection is one recording attempt: the token is consumed on
// validation, frames are appended to a WAV writer as they arrive, and
// finalize runs exactly once whether the client stops cleanly, drops,
// or goes silent past the idle timeout.
type AudioWSHandler struct {
	tokens   *storage.TokenStore
	registry *service.Registry
	metrics  *metrics.Metrics
	opts     StreamOptions
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewAudioWSHandler creates the streaming endpoint handler.
func NewAudioWSHandler(tokens *storage.TokenStore, registry *service.Registry, m *metrics.Metrics, opts StreamOptions, logger *zap.Logger) *AudioWSHandler {
	if opts.AckInterval <= 0 {
		opts.AckInterval = 10
	}
	return &AudioWSHandler{
		tokens:   tokens,
		registry: registry,
		metrics:  m,
		opts:     opts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			// Recording pages are served from arbitrary origins in dev;
			// in prod restrict CheckOrigin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and runs the connection state machine:
// Validating -> Streaming -> Finalizing, or Rejected out of Validating.
func (h *AudioWSHandler) ServeWS(c *gin.Context) {
	tokenID := c.Param("token")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	tok, err := h.tokens.ValidateAndConsume(tokenID)
	if err != nil {
		h.reject(conn, tokenID, err)
		return
	}
	h.stream(conn, tok.Token, tok.Name, tok.Email, tok.SessionName)
}

// reject closes the socket with a terminal close code mapped from the
// validation error. The client cannot retry with the same token; the
// invite flow must issue a fresh one.
func (h *AudioWSHandler) reject(conn *websocket.Conn, tokenID string, err error) {
	code := websocket.CloseInternalServerErr
	reason := "internal error"
	label := "internal"
	switch {
	case errors.Is(err, errs.ErrTokenNotFound):
		code, reason, label = CloseTokenNotFound, "Invalid token", "not_found"
	case errors.Is(err, errs.ErrTokenAlreadyUsed):
		code, reason, label = CloseTokenUsed, "Token already used", "already_used"
	case errors.Is(err, errs.ErrTokenExpired):
		code, reason, label = CloseTokenExpired, "Token expired", "expired"
	case errors.Is(err, errs.ErrDuplicateSession):
		code, reason, label = CloseTokenUsed, "Session already active", "duplicate"
	}
	h.metrics.ConnectionsRejected.WithLabelValues(label).Inc()
	h.logger.Info("streaming connection rejected",
		zap.String("token", tokenID),
		zap.String("reason", reason))

	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
}

func (h *AudioWSHandler) stream(conn *websocket.Conn, tokenID, name, email, sessionName string) {
	now := time.Now()
	filename := storage.RecordingFilename(sessionName, name, now)
	path := filepath.Join(h.opts.UploadDir, filename)

	w, err := audio.NewWriter(path, h.opts.Format)
	if err != nil {
		h.logger.Error("failed to open recording file",
			zap.String("token", tokenID), zap.String("path", path), zap.Error(err))
		// The attempt is burned: the token left pending would violate
		// single-use, so it goes terminal.
		_ = h.tokens.MarkExpired(tokenID)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "storage unavailable")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		return
	}

	sess := &service.ActiveSession{
		Token:        tokenID,
		Name:         name,
		Email:        email,
		SessionName:  sessionName,
		Filename:     filename,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := h.registry.Register(sess); err != nil {
		// Unreachable while the token store enforces single use; if it
		// happens anyway, leave the existing session alone and discard
		// the stillborn file.
		if _, ferr := w.Finalize(); ferr == nil {
			_ = os.Remove(path)
		}
		h.reject(conn, tokenID, err)
		return
	}
	h.metrics.ActiveSessions.Inc()

	h.logger.Info("streaming started",
		zap.String("token", tokenID),
		zap.String("participant", name),
		zap.String("session_name", sessionName),
		zap.String("file", filename))

	send := make(chan serverMessage, 16)
	writerDone := make(chan struct{})
	go h.writePump(conn, send, writerDone)

	res := h.readLoop(conn, w, tokenID, send)
	h.finalize(tokenID, filename, w, res, send)

	close(send)
	<-writerDone
}

// readResult summarizes why the streaming loop ended.
type readResult struct {
	stopped  bool // explicit stop control message
	chunks   int
	bytes    int64
	writeErr error // disk failure during append
}

// readLoop consumes inbound messages until stop, disconnect, idle
// timeout or a write failure. The idle timeout is a read deadline
// refreshed on every frame, control message and pong, so a silently
// dropped connection finalizes instead of leaking the session.
func (h *AudioWSHandler) readLoop(conn *websocket.Conn, w *audio.Writer, tokenID string, send chan<- serverMessage) readResult {
	if h.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(h.opts.MaxMessageSize)
	}
	resetDeadline := func() {
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.IdleTimeout))
	}
	resetDeadline()
	conn.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})

	var res readResult
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			// Abrupt disconnect and idle timeout are both an implicit
			// stop, not an error.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read ended", zap.String("token", tokenID), zap.Error(err))
			}
			return res
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := w.Append(data); err != nil {
				h.metrics.WriteFailures.Inc()
				h.logger.Error("frame write failed",
					zap.String("token", tokenID), zap.Error(err))
				res.writeErr = err
				return res
			}
			res.chunks++
			res.bytes += int64(len(data))
			h.registry.Touch(tokenID, len(data))
			h.metrics.FramesReceived.Inc()
			h.metrics.BytesReceived.Add(float64(len(data)))
			if res.chunks%h.opts.AckInterval == 0 {
				h.trySend(send, serverMessage{Type: "ack", Chunks: res.chunks, Bytes: res.bytes})
			}
			resetDeadline()
		case websocket.TextMessage:
			var ctrl controlMessage
			if err := json.Unmarshal(data, &ctrl); err != nil {
				h.logger.Debug("undecodable control message",
					zap.String("token", tokenID), zap.ByteString("data", data))
				continue
			}
			if ctrl.Type == controlStop {
				res.stopped = true
				return res
			}
			resetDeadline()
		}
	}
}

// finalize closes out the session exactly once: patches the WAV header,
// records the terminal token status and removes the session from the
// registry. It runs on every exit path of readLoop.
func (h *AudioWSHandler) finalize(tokenID, filename string, w *audio.Writer, res readResult, send chan<- serverMessage) {
	info, err := w.Finalize()
	h.registry.Unregister(tokenID)
	h.metrics.ActiveSessions.Dec()

	if err != nil {
		h.logger.Error("finalize failed",
			zap.String("token", tokenID), zap.String("file", filename), zap.Error(err))
		_ = h.tokens.MarkExpired(tokenID)
		h.trySend(send, serverMessage{Type: "error", Message: "recording could not be saved"})
		return
	}

	if merr := h.tokens.MarkCompleted(tokenID, filename, info.Size, info.Duration); merr != nil {
		h.logger.Error("failed to mark token completed",
			zap.String("token", tokenID), zap.Error(merr))
	}
	h.metrics.RecordingsCompleted.Inc()
	h.metrics.RecordingDuration.Observe(info.Duration)

	h.logger.Info("recording finalized",
		zap.String("token", tokenID),
		zap.String("file", filename),
		zap.Int("chunks", res.chunks),
		zap.Int64("size_bytes", info.Size),
		zap.Float64("duration_sec", info.Duration),
		zap.Bool("explicit_stop", res.stopped))

	if res.writeErr != nil {
		// Partial recording preserved; the failure is surfaced, not
		// silently dropped.
		h.trySend(send, serverMessage{Type: "error", Message: "write failure, partial recording saved", File: filename})
		return
	}
	h.trySend(send, serverMessage{
		Type:     "completed",
		File:     filename,
		Chunks:   res.chunks,
		Bytes:    res.bytes,
		Duration: info.Duration,
		Size:     info.Size,
	})
}

// trySend queues a message without blocking; acks are droppable when
// the client is not reading fast enough.
func (h *AudioWSHandler) trySend(send chan<- serverMessage, msg serverMessage) {
	select {
	case send <- msg:
	default:
		h.logger.Warn("send buffer full, dropping message", zap.String("type", msg.Type))
	}
}

// writePump owns all writes on the connection: queued server messages,
// periodic ping heartbeats, and the final close message once the send
// channel is closed.
func (h *AudioWSHandler) writePump(conn *websocket.Conn, send <-chan serverMessage, done chan<- struct{}) {
	defer close(done)
	pingPeriod := h.opts.IdleTimeout / 2
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(closeWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(closeWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/mailer"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/metrics"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

const defaultSessionName = "Recording Session"

// TokenHandler handles the invite/token REST API used by the admin
// dashboard collaborator.
type TokenHandler struct {
	tokens      *storage.TokenStore
	mail        *mailer.Client
	links       *service.Links
	metrics     *metrics.Metrics
	expiryHours int
	logger      *zap.Logger
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(tokens *storage.TokenStore, mail *mailer.Client, links *service.Links, m *metrics.Metrics, expiryHours int, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		tokens:      tokens,
		mail:        mail,
		links:       links,
		metrics:     m,
		expiryHours: expiryHours,
		logger:      logger,
	}
}

// issue creates one token and optionally emails the invite link.
func (h *TokenHandler) issue(c *gin.Context, email, name, sessionName string, sendEmail bool) (*model.ParticipantInvite, error) {
	tok, err := h.tokens.Issue(email, name, sessionName)
	if err != nil {
		return nil, err
	}
	h.metrics.TokensIssued.Inc()

	emailSent := false
	if sendEmail {
		err := h.mail.SendInvite(c.Request.Context(), tok.Email, tok.Name, tok.SessionName,
			h.links.RecordURL(tok.Token), h.expiryHours)
		emailSent = err == nil
		if emailSent {
			h.metrics.InviteEmailsSent.Inc()
		} else {
			h.metrics.InviteEmailsFailed.Inc()
		}
		if serr := h.tokens.SetEmailSent(tok.Token, emailSent); serr != nil {
			h.logger.Warn("failed to record email_sent flag",
				zap.String("token", tok.Token), zap.Error(serr))
		}
	}

	return &model.ParticipantInvite{
		Email:     tok.Email,
		Name:      tok.Name,
		Token:     tok.Token,
		Link:      h.links.RecordPath(tok.Token),
		FullLink:  h.links.RecordURL(tok.Token),
		EmailSent: emailSent,
	}, nil
}

// CreateSession godoc
// POST /api/sessions — a token and invite link per participant.
func (h *TokenHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	resp := model.CreateSessionResponse{SessionName: req.SessionName}
	for _, p := range req.Participants {
		invite, err := h.issue(c, p.Email, p.Name, req.SessionName, req.SendEmails)
		if err != nil {
			h.logger.Error("failed to issue token",
				zap.String("email", p.Email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
		resp.Participants = append(resp.Participants, *invite)
	}
	c.JSON(http.StatusCreated, resp)
}

// QuickInvite godoc
// POST /api/invite — single participant, email always attempted.
func (h *TokenHandler) QuickInvite(c *gin.Context) {
	var req model.QuickInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sessionName := req.SessionName
	if sessionName == "" {
		sessionName = defaultSessionName
	}
	invite, err := h.issue(c, req.Email, req.Name, sessionName, true)
	if err != nil {
		h.logger.Error("failed to issue token",
			zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invite"})
		return
	}
	c.JSON(http.StatusCreated, model.QuickInviteResponse{
		ParticipantInvite: *invite,
		EmailConfigured:   h.mail.Enabled(),
	})
}

// ListTokens godoc
// GET /api/tokens — all token records, newest first (admin view).
func (h *TokenHandler) ListTokens(c *gin.Context) {
	tokens, err := h.tokens.List()
	if err != nil {
		h.logger.Error("failed to list tokens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tokens"})
		return
	}
	c.JSON(http.StatusOK, model.TokenListResponse{Tokens: tokens})
}

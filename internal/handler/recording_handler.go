package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/errs"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/model"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

// RecordingHandler serves the listing/download API for finished
// recordings and the live session monitor.
type RecordingHandler struct {
	index    *storage.RecordingIndex
	registry *service.Registry
	logger   *zap.Logger
}

// NewRecordingHandler creates a recording handler.
func NewRecordingHandler(index *storage.RecordingIndex, registry *service.Registry, logger *zap.Logger) *RecordingHandler {
	return &RecordingHandler{index: index, registry: registry, logger: logger}
}

// ListRecordings godoc
// GET /api/recordings
func (h *RecordingHandler) ListRecordings(c *gin.Context) {
	recordings, err := h.index.List()
	if err != nil {
		h.logger.Error("failed to list recordings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recordings"})
		return
	}
	c.JSON(http.StatusOK, model.RecordingListResponse{Recordings: recordings})
}

// DownloadRecording godoc
// GET /api/recordings/:filename/download
func (h *RecordingHandler) DownloadRecording(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.index.Resolve(filename)
	if err != nil {
		if errors.Is(err, errs.ErrRecordingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recording not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recording"})
		return
	}
	c.Header("Content-Type", "audio/wav")
	c.FileAttachment(path, filename)
}

// ActiveSessions godoc
// GET /api/active — snapshot of live streaming connections.
func (h *RecordingHandler) ActiveSessions(c *gin.Context) {
	c.JSON(http.StatusOK, model.ActiveSessionsResponse{Active: h.registry.ListActive()})
}

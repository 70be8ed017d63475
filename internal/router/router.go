package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/handler"
	"github.com/Zilai-WANG/Web-Recording-Collection/pkg/constants"
)

// New builds the HTTP router.
func New(
	tokenHandler *handler.TokenHandler,
	recordingHandler *handler.RecordingHandler,
	audioWS *handler.AudioWSHandler,
	health *handler.HealthHandler,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)
	r.GET(constants.PathMetrics, gin.WrapH(
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// REST API for the admin dashboard collaborator
	api := r.Group("/api")
	{
		api.POST("/sessions", tokenHandler.CreateSession)
		api.POST("/invite", tokenHandler.QuickInvite)
		api.GET("/tokens", tokenHandler.ListTokens)
		api.GET("/recordings", recordingHandler.ListRecordings)
		api.GET("/recordings/:filename/download", recordingHandler.DownloadRecording)
		api.GET("/active", recordingHandler.ActiveSessions)
	}

	// WebSocket: /ws/audio/:token
	r.GET("/ws/audio/:token", audioWS.ServeWS)

	return r
}

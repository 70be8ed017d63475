package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Zilai-WANG/Web-Recording-Collection/internal/audio"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/config"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/handler"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/mailer"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/metrics"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/router"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/service"
	"github.com/Zilai-WANG/Web-Recording-Collection/internal/storage"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg      *config.Config
	srv      *http.Server
	registry *service.Registry
	logger   *zap.Logger
}

// NewAPI creates the API application: validates config, opens the token
// and recording stores, builds the router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tokens, err := storage.NewTokenStore(cfg.TokenDir, cfg.TokenExpiry())
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	index, err := storage.NewRecordingIndex(cfg.UploadDir, tokens)
	if err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	registry := service.NewRegistry(logger)
	mail := mailer.NewClient(cfg.ResendAPIKey, cfg.ResendFromEmail, logger)
	links := &service.Links{BaseURL: cfg.AppBaseURL, WSBaseURL: cfg.WSBaseURL}

	tokenHandler := handler.NewTokenHandler(tokens, mail, links, m, cfg.TokenExpiryHours, logger)
	recordingHandler := handler.NewRecordingHandler(index, registry, logger)
	audioWS := handler.NewAudioWSHandler(tokens, registry, m, handler.StreamOptions{
		UploadDir: cfg.UploadDir,
		Format: audio.Format{
			SampleRate:    cfg.SampleRate,
			Channels:      cfg.Channels,
			BitsPerSample: cfg.BitsPerSample,
		},
		IdleTimeout:     cfg.IdleTimeout(),
		AckInterval:     cfg.WSAckInterval,
		MaxMessageSize:  cfg.WSMaxMessageSize,
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
	}, logger)
	health := handler.NewHealthHandler()

	r := router.New(tokenHandler, recordingHandler, audioWS, health, promRegistry)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		// No ReadTimeout/WriteTimeout: streaming connections outlive any
		// sensible request deadline; the WS handler enforces its own
		// idle timeout.
		IdleTimeout: 60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, registry: registry, logger: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then
// shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Sessions:      %s/api/sessions", base)
	log.Printf("  Tokens:        %s/api/tokens", base)
	log.Printf("  Recordings:    %s/api/recordings", base)
	log.Printf("  WebSocket:     ws://%s:%s/ws/audio/:token", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	if n := a.registry.Count(); n > 0 {
		a.logger.Info("shutting down with active sessions; connections will finalize on close",
			zap.Int("active", n))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	_ = a.logger.Sync()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

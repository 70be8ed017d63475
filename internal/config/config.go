package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds audio-capture service configuration.
type Config struct {
	AppEnv   string // APP_ENV
	AppHost  string // APP_HOST
	HTTPPort string // APP_PORT or HTTP_PORT
	LogLevel string // LOG_LEVEL

	// Storage
	UploadDir string // UPLOAD_DIR — finished WAV recordings
	TokenDir  string // TOKEN_DIR — one JSON record per issued token

	// Tokens
	TokenExpiryHours int

	// Audio: fixed PCM parameters agreed with the browser client
	SampleRate    int
	Channels      int
	BitsPerSample int

	// WebSocket
	WSReadBufferSize  int
	WSWriteBufferSize int
	WSMaxMessageSize  int64
	WSIdleTimeout     int // seconds without a frame or pong before forced finalize
	WSAckInterval     int // send an ack every N frames

	// Invite emails (Resend)
	ResendAPIKey    string
	ResendFromEmail string

	// Public URLs embedded in invites and API responses
	AppBaseURL string // e.g. https://record.example.com
	WSBaseURL  string // e.g. wss://record.example.com; relative paths when empty
}

// Load loads config from environment (.env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	expiry, _ := strconv.Atoi(getEnv("TOKEN_EXPIRY_HOURS", "24"))
	sampleRate, _ := strconv.Atoi(getEnv("SAMPLE_RATE", "48000"))
	channels, _ := strconv.Atoi(getEnv("CHANNELS", "1"))
	bits, _ := strconv.Atoi(getEnv("BITS_PER_SAMPLE", "16"))
	readBuf, _ := strconv.Atoi(getEnv("WS_READ_BUFFER_SIZE", "4096"))
	writeBuf, _ := strconv.Atoi(getEnv("WS_WRITE_BUFFER_SIZE", "4096"))
	maxMsg, _ := strconv.ParseInt(getEnv("WS_MAX_MESSAGE_SIZE", "10485760"), 10, 64)
	idleTO, _ := strconv.Atoi(getEnv("WS_IDLE_TIMEOUT", "60"))
	ackEvery, _ := strconv.Atoi(getEnv("WS_ACK_INTERVAL", "10"))

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:          firstEnv("APP_PORT", "HTTP_PORT", "8000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		TokenDir:          getEnv("TOKEN_DIR", "tokens"),
		TokenExpiryHours:  expiry,
		SampleRate:        sampleRate,
		Channels:          channels,
		BitsPerSample:     bits,
		WSReadBufferSize:  readBuf,
		WSWriteBufferSize: writeBuf,
		WSMaxMessageSize:  maxMsg,
		WSIdleTimeout:     idleTO,
		WSAckInterval:     ackEvery,
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		ResendFromEmail:   getEnv("RESEND_FROM_EMAIL", "Audio Capture <onboarding@resend.dev>"),
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:8000"),
		WSBaseURL:         getEnv("WS_BASE_URL", ""),
	}
	return cfg, nil
}

// Validate checks required fields and production safety.
func (c *Config) Validate() error {
	if c.UploadDir == "" {
		return errors.New("config: UPLOAD_DIR is required")
	}
	if c.TokenDir == "" {
		return errors.New("config: TOKEN_DIR is required")
	}
	if c.TokenExpiryHours <= 0 {
		return fmt.Errorf("config: TOKEN_EXPIRY_HOURS must be positive, got %d", c.TokenExpiryHours)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("config: CHANNELS must be positive, got %d", c.Channels)
	}
	if c.BitsPerSample <= 0 || c.BitsPerSample%8 != 0 {
		return fmt.Errorf("config: BITS_PER_SAMPLE must be a positive multiple of 8, got %d", c.BitsPerSample)
	}
	if c.WSIdleTimeout <= 0 {
		return fmt.Errorf("config: WS_IDLE_TIMEOUT must be positive, got %d", c.WSIdleTimeout)
	}
	if c.WSAckInterval <= 0 {
		return fmt.Errorf("config: WS_ACK_INTERVAL must be positive, got %d", c.WSAckInterval)
	}
	if c.AppEnv == "production" && c.AppBaseURL == "" {
		return errors.New("config: in production APP_BASE_URL is required")
	}
	return nil
}

// TokenExpiry returns the token validity window as a duration.
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.TokenExpiryHours) * time.Hour
}

// IdleTimeout returns the per-connection idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.WSIdleTimeout) * time.Second
}

// Addr returns listen address for HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	keys := keysAndDef[:len(keysAndDef)-1]
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

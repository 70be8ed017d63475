package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 48000, cfg.SampleRate)
	require.Equal(t, 1, cfg.Channels)
	require.Equal(t, 16, cfg.BitsPerSample)
	require.Equal(t, 24*time.Hour, cfg.TokenExpiry())
	require.Equal(t, 60*time.Second, cfg.IdleTimeout())
	require.Equal(t, 10, cfg.WSAckInterval)
	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9100")
	t.Setenv("SAMPLE_RATE", "16000")
	t.Setenv("WS_IDLE_TIMEOUT", "15")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9100", cfg.HTTPPort)
	require.Equal(t, 16000, cfg.SampleRate)
	require.Equal(t, 15*time.Second, cfg.IdleTimeout())
}

func TestValidateRejectsBadAudio(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.BitsPerSample = 12
	require.Error(t, cfg.Validate())

	cfg.BitsPerSample = 16
	cfg.SampleRate = 0
	require.Error(t, cfg.Validate())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the audio capture service.
type Metrics struct {
	// Token lifecycle
	TokensIssued        prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec // reason: not_found, expired, already_used, duplicate

	// Streaming
	ActiveSessions prometheus.Gauge
	FramesReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	WriteFailures  prometheus.Counter

	// Recordings
	RecordingsCompleted prometheus.Counter
	RecordingDuration   prometheus.Histogram

	// Invites
	InviteEmailsSent   prometheus.Counter
	InviteEmailsFailed prometheus.Counter
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_tokens_issued_total",
			Help: "Total number of recording tokens issued",
		}),
		ConnectionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiocapture_connections_rejected_total",
			Help: "Total number of rejected streaming connection attempts",
		}, []string{"reason"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audiocapture_active_sessions",
			Help: "Current number of active streaming sessions",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_frames_received_total",
			Help: "Total number of audio frames received over WebSocket",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_bytes_received_total",
			Help: "Total PCM payload bytes received over WebSocket",
		}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_write_failures_total",
			Help: "Total number of disk write failures during streaming",
		}),
		RecordingsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_recordings_completed_total",
			Help: "Total number of finalized recordings",
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiocapture_recording_duration_seconds",
			Help:    "Duration of finalized recordings in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		InviteEmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_invite_emails_sent_total",
			Help: "Total number of invite emails delivered",
		}),
		InviteEmailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiocapture_invite_emails_failed_total",
			Help: "Total number of invite email delivery failures",
		}),
	}
}

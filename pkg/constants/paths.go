package constants

// Пути health, ready, metrics (остальные API — в router).
const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
)

// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesCaptured *prometheus.CounterVec
	SessionsTotal    *prometheus.CounterVec
	FetchRetries     *prometheus.CounterVec

	// Histograms (seconds)
	FetchDuration  *prometheus.HistogramVec
	RenderDuration *prometheus.HistogramVec

	// Gauges
	CaptureActiveGauge prometheus.Gauge // 1=live capture connected, 0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatrec_messages_captured_total", Help: "Canonical messages captured, by platform"}, []string{"platform"})
		SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatrec_sessions_total", Help: "Recording sessions finished, by platform, format and outcome"}, []string{"platform", "format", "outcome"})
		FetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatrec_fetch_retries_total", Help: "Backoff rounds spent in the fetch retry loop, by platform"}, []string{"platform"})
		FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "chatrec_fetch_duration_seconds", Help: "Fetch phase duration seconds", Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300, 1800, 3600}}, []string{"platform"})
		RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "chatrec_render_duration_seconds", Help: "Render plus persist duration seconds", Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30}}, []string{"format"})
		CaptureActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatrec_capture_active", Help: "Live capture session connected=1 idle=0"})
	})
}

// RecordMessageCaptured increments the per-platform message counter by one.
func RecordMessageCaptured(platform string) {
	if MessagesCaptured != nil { MessagesCaptured.WithLabelValues(platform).Inc() }
}

// AddMessagesCaptured adds a whole batch at once, as history fetches do.
func AddMessagesCaptured(platform string, n int) {
	if MessagesCaptured != nil && n > 0 { MessagesCaptured.WithLabelValues(platform).Add(float64(n)) }
}

// RecordSessionOutcome counts one finished session (outcome: done|failed).
func RecordSessionOutcome(platform, format, outcome string) {
	if SessionsTotal != nil { SessionsTotal.WithLabelValues(platform, format, outcome).Inc() }
}

// RecordFetchRetry counts one backoff round.
func RecordFetchRetry(platform string) {
	if FetchRetries != nil { FetchRetries.WithLabelValues(platform).Inc() }
}

// ObserveFetchDuration records how long the fetch phase took.
func ObserveFetchDuration(platform string, seconds float64) {
	if FetchDuration != nil { FetchDuration.WithLabelValues(platform).Observe(seconds) }
}

// ObserveRenderDuration records how long rendering plus persisting took.
func ObserveRenderDuration(format string, seconds float64) {
	if RenderDuration != nil { RenderDuration.WithLabelValues(format).Observe(seconds) }
}

// SetCaptureActive sets gauge to 1 while a live capture is connected.
func SetCaptureActive(active bool) {
	if CaptureActiveGauge != nil { if active { CaptureActiveGauge.Set(1) } else { CaptureActiveGauge.Set(0) } }
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context { return context.WithValue(ctx, corrKey, id) }

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok { return s }
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" { return slog.Default().With(slog.String("corr", id)) }
	return slog.Default()
}

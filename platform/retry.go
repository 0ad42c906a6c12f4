package platform

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/onnwee/chatrec/telemetry"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// withRetry runs fn with exponential backoff + jitter and configurable
// attempts. Access errors abort immediately; the returned count is how
// many times fn ran.
func withRetry(ctx context.Context, platformName, op string, fn func() error) (int, error) {
	maxAttempts := defaultMaxAttempts
	if s := os.Getenv("FETCH_MAX_ATTEMPTS"); s != "" { if n, err := strconv.Atoi(s); err == nil && n > 0 { maxAttempts = n } }
	baseBackoff := defaultBackoff
	if s := os.Getenv("FETCH_BACKOFF"); s != "" { if d, err := time.ParseDuration(s); err == nil && d > 0 { baseBackoff = d } }

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<attempt)
			jitter := time.Duration(rand.Int63n(int64(baseBackoff))) // up to baseBackoff extra
			backoff += jitter
			slog.Warn("retrying fetch", slog.String("platform", platformName), slog.String("op", op), slog.Int("attempt", attempt), slog.Duration("backoff", backoff))
			telemetry.RecordFetchRetry(platformName)
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := fn(); err != nil {
			lastErr = err
			if Classify(err) == ClassAccess {
				return attempt + 1, lastErr
			}
			continue
		}
		return attempt + 1, nil
	}
	return maxAttempts, lastErr
}

// Command chatrec records chat messages from one channel on one platform
// and writes them to a single output file.
// It:
//   - Parses flags and env into a validated recording config.
//   - Initializes structured logging, Prometheus metrics, and optional
//     OpenTelemetry tracing.
//   - Runs one recording session: fetch (history page-through or timed
//     live capture), render, atomic write.
//   - Optionally exposes /healthz and /metrics while recording when
//     METRICS_ADDR is set.
//
// Shutdown is graceful on SIGINT/SIGTERM: a live capture keeps what it
// collected so far.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/onnwee/chatrec/config"
	"github.com/onnwee/chatrec/format"
	"github.com/onnwee/chatrec/platform"
	"github.com/onnwee/chatrec/recorder"
	"github.com/onnwee/chatrec/server"
	"github.com/onnwee/chatrec/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[logFormat == "json"]))

	// Config
	cfg, err := config.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		slog.Error("invalid configuration", slog.Any("err", err))
		return exitCode(err)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		return exitCode(err)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chatrec", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		return 1
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ops listener for long captures (health/metrics)
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			if err := server.Start(ctx, addr); err != nil {
				slog.Error("http server exited with error", slog.Any("err", err))
			}
		}()
	}

	sess, err := recorder.New(cfg)
	if err != nil {
		slog.Error("failed to build session", slog.Any("err", err))
		return exitCode(err)
	}
	if err := sess.Run(ctx); err != nil {
		slog.Error("recording failed", slog.Any("err", err), slog.String("state", sess.State().String()))
		return exitCode(err)
	}

	fmt.Printf("Recorded %d messages to %s\n", len(sess.Messages()), sess.OutputPath())
	return 0
}

// exitCode maps failure categories to stable process exit codes so shell
// callers can tell a bad flag from a missing channel from a flaky network.
func exitCode(err error) int {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	var accessErr *platform.AccessError
	if errors.As(err, &accessErr) {
		return 3
	}
	var fetchErr *platform.FetchError
	if errors.As(err, &fetchErr) {
		return 4
	}
	var renderErr *format.RenderError
	if errors.As(err, &renderErr) {
		return 5
	}
	return 1
}

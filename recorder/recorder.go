// Package recorder drives one recording session: fetch messages from a
// platform source, render them with an output writer, persist the result
// atomically.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chatrec/config"
	"github.com/onnwee/chatrec/format"
	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/platform"
	"github.com/onnwee/chatrec/telemetry"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateRendering
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrAlreadyRun is returned by Run on a session that already ran.
var ErrAlreadyRun = errors.New("recording session already run")

// Session records one channel once. It is single-use and not safe for
// concurrent calls; run it, then read the results.
type Session struct {
	ID string

	source platform.Source
	writer format.Writer
	output string

	state    State
	messages []message.Message
	outPath  string
}

// New wires a session from a validated config.
func New(cfg *config.Config) (*Session, error) {
	src, err := platform.New(cfg)
	if err != nil {
		return nil, err
	}
	w, err := format.New(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:     uuid.New().String(),
		source: src,
		writer: w,
		output: cfg.Output,
	}, nil
}

func (s *Session) State() State { return s.state }

// Messages returns what the session captured. Valid after Run; on a
// failed fetch it stays empty.
func (s *Session) Messages() []message.Message { return s.messages }

// OutputPath returns where the rendered file landed. Empty until the
// session is done.
func (s *Session) OutputPath() string { return s.outPath }

// Run drives the session end to end: Idle -> Fetching -> Rendering ->
// Done, with Failed terminal on either phase. A failed session leaves no
// output file behind.
func (s *Session) Run(ctx context.Context) error {
	if s.state != StateIdle {
		return ErrAlreadyRun
	}

	ctx = telemetry.WithCorrelation(ctx, s.ID)
	log := telemetry.LoggerWithCorr(ctx)
	platformName := s.source.Platform()
	formatName := s.writer.Format()

	ctx, span := telemetry.StartSpan(ctx, "recorder", "record",
		attribute.String("platform", platformName),
		attribute.String("format", formatName),
	)
	defer span.End()

	s.state = StateFetching
	log.Info("session started", slog.String("platform", platformName), slog.String("format", formatName))

	fetchCtx, fetchSpan := telemetry.StartSpan(ctx, "recorder", "fetch")
	fetchStart := time.Now()
	msgs, err := s.source.Fetch(fetchCtx)
	telemetry.ObserveFetchDuration(platformName, time.Since(fetchStart).Seconds())
	if err != nil {
		telemetry.RecordError(fetchSpan, err)
		fetchSpan.End()
		telemetry.RecordError(span, err)
		s.state = StateFailed
		telemetry.RecordSessionOutcome(platformName, formatName, "failed")
		log.Error("fetch failed", slog.Any("err", err), slog.Duration("fetch_duration", time.Since(fetchStart)))
		return err
	}
	fetchSpan.End()
	s.messages = msgs
	log.Info("fetch complete", slog.Int("messages", len(msgs)), slog.Duration("fetch_duration", time.Since(fetchStart)))

	s.state = StateRendering
	path := s.output
	if path == "" {
		path = defaultOutputName(platformName, s.writer)
	}

	_, renderSpan := telemetry.StartSpan(ctx, "recorder", "render", attribute.String("output", path))
	renderStart := time.Now()
	err = writeAtomic(path, s.writer, msgs)
	telemetry.ObserveRenderDuration(formatName, time.Since(renderStart).Seconds())
	if err != nil {
		renderErr := &format.RenderError{Format: formatName, Err: err}
		telemetry.RecordError(renderSpan, renderErr)
		renderSpan.End()
		telemetry.RecordError(span, renderErr)
		s.state = StateFailed
		telemetry.RecordSessionOutcome(platformName, formatName, "failed")
		log.Error("render failed", slog.Any("err", renderErr), slog.String("output", path))
		return renderErr
	}
	renderSpan.End()

	s.state = StateDone
	s.outPath = path
	telemetry.SetSpanSuccess(span)
	telemetry.RecordSessionOutcome(platformName, formatName, "done")
	log.Info("session done", slog.Int("messages", len(msgs)), slog.String("output", path))
	return nil
}

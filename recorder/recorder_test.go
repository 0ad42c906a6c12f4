package recorder

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatrec/config"
	"github.com/onnwee/chatrec/format"
	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/platform"
	"github.com/onnwee/chatrec/testutil"
)

type failingSource struct{ err error }

func (f failingSource) Platform() string { return "demo" }
func (f failingSource) Fetch(ctx context.Context) ([]message.Message, error) {
	return nil, f.err
}

type staticSource struct{ msgs []message.Message }

func (s staticSource) Platform() string { return "demo" }
func (s staticSource) Fetch(ctx context.Context) ([]message.Message, error) {
	return s.msgs, nil
}

type failingWriter struct{}

func (failingWriter) Format() string { return "json" }
func (failingWriter) Ext() string    { return "json" }
func (failingWriter) Render(w io.Writer, msgs []message.Message) error {
	return errors.New("render exploded")
}

func mustWriter(t *testing.T, name string) format.Writer {
	t.Helper()
	w, err := format.New(name)
	require.NoError(t, err)
	return w
}

func demoConfig(t *testing.T, formatName string, count int) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]string{
		"--platform", "demo",
		"--format", formatName,
		"--count", strconv.Itoa(count),
		"--output", filepath.Join(t.TempDir(), "out."+formatName),
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSessionDemoCSV(t *testing.T) {
	cfg := demoConfig(t, "csv", 3)
	sess, err := New(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, StateIdle, sess.State())

	require.NoError(t, sess.Run(context.Background()))
	assert.Equal(t, StateDone, sess.State())
	assert.Equal(t, cfg.Output, sess.OutputPath())
	assert.Len(t, sess.Messages(), 3)

	f, err := os.Open(cfg.Output)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus three rows")
	assert.Equal(t, []string{"timestamp", "channel", "user", "content", "message_id"}, records[0])
}

func TestSessionSecondRunFails(t *testing.T) {
	sess, err := New(demoConfig(t, "json", 2))
	require.NoError(t, err)
	require.NoError(t, sess.Run(context.Background()))

	err = sess.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRun)
	assert.Equal(t, StateDone, sess.State(), "a rejected rerun must not disturb the finished session")
}

func TestSessionFailedFetchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "never.json")
	inner := &platform.AccessError{Platform: "discord", Channel: "123", Err: errors.New("403")}
	sess := &Session{
		ID:     "test-session",
		source: failingSource{err: inner},
		writer: mustWriter(t, "json"),
		output: out,
	}

	err := sess.Run(context.Background())
	require.Error(t, err)

	var accessErr *platform.AccessError
	assert.ErrorAs(t, err, &accessErr)
	assert.Equal(t, StateFailed, sess.State())
	assert.Empty(t, sess.OutputPath())

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output file may exist after a failed fetch")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionRenderFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "broken.json")
	sess := &Session{
		ID: "test-session",
		source: staticSource{msgs: []message.Message{
			{Channel: "general", User: "alice", Content: "hi", ID: "1"},
		}},
		writer: failingWriter{},
		output: out,
	}

	err := sess.Run(context.Background())
	require.Error(t, err)

	var renderErr *format.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, StateFailed, sess.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "the temp file must be removed on render failure")
}

func TestSessionLiveDropReachesDone(t *testing.T) {
	mock := testutil.NewMockIRCServer(t, testutil.MockIRCScript{
		Messages: []testutil.MockChatLine{
			{User: "alice", Text: "hello"},
			{User: "bob", Text: "goodbye"},
		},
		Drop: true,
	})
	host, port := mock.Addr()

	out := filepath.Join(t.TempDir(), "partial.json")
	cfg, err := config.Parse([]string{
		"--platform", "irc",
		"--server", host,
		"--port", strconv.Itoa(port),
		"--channel", "general",
		"--duration", "1",
		"--format", "json",
		"--output", out,
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	sess, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, sess.Run(context.Background()), "a dropped live session still renders its partial capture")

	assert.Equal(t, StateDone, sess.State())
	assert.Len(t, sess.Messages(), 2)
	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateFetching, "fetching"},
		{StateRendering, "rendering"},
		{StateDone, "done"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

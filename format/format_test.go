package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatrec/message"
)

func sampleMessages() []message.Message {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []message.Message{
		{Timestamp: base, Channel: "general", User: "alice", Content: "plain text", ID: "1"},
		{Timestamp: base.Add(time.Minute), Channel: "general", User: "bob", Content: "commas, \"quotes\" and\nnewlines", ID: "2", Metadata: map[string]any{"edited": true}},
		{Timestamp: base.Add(2 * time.Minute), Channel: "#ops", User: "charlie", Content: "markup *stars* _and_ [links](x)", ID: "3"},
		{Timestamp: base.Add(3 * time.Minute), Channel: "general", User: "alice", Content: "", ID: "4"},
	}
}

func render(t *testing.T, name string, msgs []message.Message) string {
	t.Helper()
	w, err := New(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Render(&buf, msgs))
	return buf.String()
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("yaml")
	require.Error(t, err)
}

func TestWriterNamesAndExtensions(t *testing.T) {
	for _, tt := range []struct{ name, ext string }{
		{"json", "json"},
		{"csv", "csv"},
		{"markdown", "md"},
		{"txt", "txt"},
	} {
		w, err := New(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.name, w.Format())
		assert.Equal(t, tt.ext, w.Ext())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	msgs := sampleMessages()
	out := render(t, "json", msgs)

	var back []message.Message
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	require.Len(t, back, len(msgs))
	for i, m := range msgs {
		assert.Equal(t, m.Channel, back[i].Channel)
		assert.Equal(t, m.User, back[i].User)
		assert.Equal(t, m.Content, back[i].Content)
		assert.Equal(t, m.ID, back[i].ID)
		assert.True(t, m.Timestamp.Equal(back[i].Timestamp))
	}
	assert.Equal(t, true, back[1].Metadata["edited"], "metadata survives the round trip")
}

func TestJSONEmpty(t *testing.T) {
	assert.Equal(t, "[]\n", render(t, "json", nil))
}

func TestCSVRoundTrip(t *testing.T) {
	out := render(t, "csv", sampleMessages())

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"timestamp", "channel", "user", "content", "message_id"}, records[0])
	for _, rec := range records {
		assert.Len(t, rec, 5)
	}
	assert.Equal(t, "commas, \"quotes\" and\nnewlines", records[2][3], "delimiters survive quoting")
	assert.Equal(t, "", records[4][3], "empty content stays a field")
}

func TestCSVEmpty(t *testing.T) {
	records, err := csv.NewReader(strings.NewReader(render(t, "csv", nil))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestMarkdownGrouping(t *testing.T) {
	out := render(t, "markdown", sampleMessages())

	genIdx := strings.Index(out, "## Channel: #general")
	opsIdx := strings.Index(out, "## Channel: #ops")
	require.GreaterOrEqual(t, genIdx, 0)
	require.GreaterOrEqual(t, opsIdx, 0)
	assert.Less(t, genIdx, opsIdx, "channels keep first-appearance order")
	assert.NotContains(t, out, "## Channel: ##ops", "existing # prefix is not doubled")

	assert.Contains(t, out, "**Total Messages**: 4")
	assert.Contains(t, out, `\*stars\*`, "markup in content is escaped")
	assert.Contains(t, out, "<br>", "newlines collapse to <br>")
}

func TestMarkdownGroupTimestampsOrdered(t *testing.T) {
	out := render(t, "markdown", sampleMessages())

	section := out[strings.Index(out, "## Channel: #general"):]
	if i := strings.Index(section[1:], "## Channel:"); i >= 0 {
		section = section[:i+1]
	}
	var last time.Time
	for _, line := range strings.Split(section, "\n") {
		if !strings.HasPrefix(line, "**") {
			continue
		}
		raw := strings.TrimPrefix(line, "**")
		raw = raw[:strings.Index(raw, "**")]
		ts, err := time.Parse(time.RFC3339, raw)
		require.NoError(t, err)
		assert.False(t, ts.Before(last), "timestamps within a section are non-decreasing")
		last = ts
	}
}

func TestTxtLines(t *testing.T) {
	out := render(t, "txt", sampleMessages())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6, "title, rule and one line per message")
	assert.Equal(t, "Channel Messages Record", lines[0])
	assert.Equal(t, strings.Repeat("=", 70), lines[1])
	assert.Equal(t, "[2024-03-01T12:00:00Z] general <alice>: plain text", lines[2])
	assert.Contains(t, lines[3], `and\nnewlines`, "newline in content is escaped, not emitted")
}

func TestRenderIdempotent(t *testing.T) {
	msgs := sampleMessages()
	for _, name := range []string{"json", "csv", "markdown", "txt"} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, render(t, name, msgs), render(t, name, msgs))
		})
	}
}

func TestRenderEmptyAllFormats(t *testing.T) {
	for _, name := range []string{"json", "csv", "markdown", "txt"} {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, render(t, name, nil))
		})
	}
}

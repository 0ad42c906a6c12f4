// Package format renders canonical messages into the supported output
// formats. Writers are pure functions of their input: rendering the same
// sequence twice produces byte-identical output, and the empty sequence
// always yields a valid header-only or empty document.
package format

import (
	"fmt"
	"io"
	"time"

	"github.com/onnwee/chatrec/message"
)

// Writer renders a message sequence into one concrete output format.
type Writer interface {
	// Format returns the writer's name as accepted by --format.
	Format() string
	// Ext returns the file extension (without dot) used for generated
	// output names.
	Ext() string
	// Render writes the whole sequence to w. msgs may be nil or empty.
	Render(w io.Writer, msgs []message.Message) error
}

// RenderError reports a failure to render or persist formatted output.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %s: %v", e.Format, e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// New returns the writer for the given format name. The name set is closed;
// config validation rejects unknown names before they can reach here.
func New(name string) (Writer, error) {
	switch name {
	case "json":
		return jsonWriter{}, nil
	case "csv":
		return csvWriter{}, nil
	case "markdown":
		return markdownWriter{}, nil
	case "txt":
		return txtWriter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

// formatTimestamp renders a message timestamp the way every non-JSON writer
// shows it.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

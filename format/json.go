package format

import (
	"encoding/json"
	"io"

	"github.com/onnwee/chatrec/message"
)

type jsonWriter struct{}

func (jsonWriter) Format() string { return "json" }
func (jsonWriter) Ext() string    { return "json" }

// Render emits a 2-space indented JSON array with every field preserved,
// metadata included. A nil slice renders as [] rather than null so
// downstream parsers always see an array.
func (jsonWriter) Render(w io.Writer, msgs []message.Message) error {
	if msgs == nil {
		msgs = []message.Message{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(msgs)
}

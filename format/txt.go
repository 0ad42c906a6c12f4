package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/onnwee/chatrec/message"
)

// txtEscaper keeps each message on a single line so the log stays greppable.
var txtEscaper = strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n")

type txtWriter struct{}

func (txtWriter) Format() string { return "txt" }
func (txtWriter) Ext() string    { return "txt" }

// Render writes a plain text log: a two-line header, then one line per
// message in capture order as [timestamp] channel <user>: content.
func (txtWriter) Render(w io.Writer, msgs []message.Message) error {
	var b strings.Builder
	b.WriteString("Channel Messages Record\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s <%s>: %s\n", formatTimestamp(m.Timestamp), m.Channel, m.User, txtEscaper.Replace(m.Content))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/onnwee/chatrec/message"
)

type markdownWriter struct{}

func (markdownWriter) Format() string { return "markdown" }
func (markdownWriter) Ext() string    { return "md" }

// Render groups messages by channel in order of first appearance and writes
// one section per channel, messages in capture order within it. User names
// and content are escaped so markup characters in chat text cannot
// restructure the document.
func (markdownWriter) Render(w io.Writer, msgs []message.Message) error {
	var b strings.Builder
	b.WriteString("# Channel Messages Record\n\n")
	fmt.Fprintf(&b, "**Total Messages**: %d\n\n", len(msgs))
	b.WriteString("---\n")

	var order []string
	groups := make(map[string][]message.Message)
	for _, m := range msgs {
		if _, ok := groups[m.Channel]; !ok {
			order = append(order, m.Channel)
		}
		groups[m.Channel] = append(groups[m.Channel], m)
	}

	for _, ch := range order {
		fmt.Fprintf(&b, "\n## Channel: %s\n\n", displayChannel(ch))
		for _, m := range groups[ch] {
			fmt.Fprintf(&b, "**%s** - **%s**: %s\n", formatTimestamp(m.Timestamp), escapeMarkdown(m.User), escapeMarkdown(m.Content))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// displayChannel prefixes a # for the section heading unless the platform
// name already carries one, as IRC and Twitch channels do.
func displayChannel(ch string) string {
	if strings.HasPrefix(ch, "#") {
		return ch
	}
	return "#" + ch
}

// escapeMarkdown neutralizes characters that markdown would interpret as
// markup. Newlines become <br> so a message stays on its own line.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '`', '*', '_', '[', ']', '<':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString("<br>")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

package format

import (
	"encoding/csv"
	"io"

	"github.com/onnwee/chatrec/message"
)

// csvHeader is the fixed column set. Metadata is deliberately absent: CSV is
// the flat projection of the record.
var csvHeader = []string{"timestamp", "channel", "user", "content", "message_id"}

type csvWriter struct{}

func (csvWriter) Format() string { return "csv" }
func (csvWriter) Ext() string    { return "csv" }

// Render writes an RFC 4180 document, one row per message after the header.
// Embedded delimiters, quotes and newlines are quoted by the encoder, so a
// row always parses back into the same five fields.
func (csvWriter) Render(w io.Writer, msgs []message.Message) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range msgs {
		rec := []string{formatTimestamp(m.Timestamp), m.Channel, m.User, m.Content, m.ID}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

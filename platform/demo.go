package platform

import (
	"context"
	"strconv"
	"time"

	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/telemetry"
)

var demoBase = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

var demoUsers = []string{"alice", "bob", "charlie"}

// The content cycle deliberately covers the characters every output
// format has to escape: backticks, markdown markup, quotes, commas,
// newlines and an empty message.
var demoContents = []string{
	"Hey team, the deploy just finished",
	"Nice, numbers look good, no errors so far",
	"Careful with `rm -rf` in the *prod* shell...",
	`He literally said "ship it", so we shipped it`,
	"Line one\nline two, with a comma",
	"",
	"Check [the runbook](https://wiki.example.com/runbook) first",
	"fixed_underscore_names are fine now",
}

// DemoSource generates a deterministic transcript without touching the
// network. Two runs with the same count produce identical messages.
type DemoSource struct {
	count int
}

func NewDemoSource(count int) *DemoSource {
	return &DemoSource{count: count}
}

func (s *DemoSource) Platform() string { return "demo" }

func (s *DemoSource) Fetch(ctx context.Context) ([]message.Message, error) {
	msgs := make([]message.Message, 0, s.count)
	for i := 0; i < s.count; i++ {
		channel := "general"
		if i%3 == 2 {
			channel = "dev-team"
		}
		m := message.Message{
			Timestamp: demoBase.Add(time.Duration(i) * 45 * time.Second),
			Channel:   channel,
			User:      demoUsers[i%len(demoUsers)],
			Content:   demoContents[i%len(demoContents)],
			ID:        strconv.Itoa(i + 1),
		}
		switch {
		case i%4 == 1:
			m.Metadata = map[string]any{"edited": true}
		case i%5 == 3:
			m.Metadata = map[string]any{"reactions": 3}
		}
		msgs = append(msgs, m)
	}
	telemetry.AddMessagesCaptured("demo", len(msgs))
	return msgs, nil
}

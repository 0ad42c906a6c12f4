// Package message defines the canonical chat message shared by every
// platform source and every output writer.
package message

import "time"

// Message is one chat message normalized to a platform-neutral shape.
//
// Timestamp is always UTC and non-decreasing within a recording session.
// Channel, User and ID are kept exactly as the originating platform reports
// them; where a platform has no native message id, the producing source
// assigns a 1-based decimal sequence number unique within the run. Content
// may be empty (attachment-only messages exist) but is always present.
// Metadata is optional and holds primitive values only, such as edit flags
// or reaction summaries.
type Message struct {
	Timestamp time.Time      `json:"timestamp"`
	Channel   string         `json:"channel"`
	User      string         `json:"user"`
	Content   string         `json:"content"`
	ID        string         `json:"message_id"`
	Metadata  map[string]any `json:"metadata"`
}

package session

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single chat message. Content is immutable once the
// message has been appended to a session.
type Message struct {
	ID        int       `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Degraded  bool      `json:"degraded,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is the wire-format turn sent to the assistant endpoint.
// It carries no UI-only fields.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryWindow bounds how many prior turns accompany each request.
const HistoryWindow = 12

// Window returns a copy of the most recent entries, at most HistoryWindow.
func Window(entries []HistoryEntry) []HistoryEntry {
	start := 0
	if len(entries) > HistoryWindow {
		start = len(entries) - HistoryWindow
	}
	window := make([]HistoryEntry, len(entries)-start)
	copy(window, entries[start:])
	return window
}

// Package cache keys assistant replies by the conversation that produced
// them, letting the server skip an upstream call when the same question
// arrives with the same context.
package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"neotrace/internal/session"
)

// TTL bounds how long a cached reply stays valid.
const TTL = 10 * time.Minute

// CachedReply is a previously delivered assistant reply.
type CachedReply struct {
	Reply     string
	Timestamp time.Time
}

// Expired reports whether the entry has outlived the TTL.
func (c CachedReply) Expired() bool {
	return time.Since(c.Timestamp) > TTL
}

// Key hashes the history window plus the new message into a cache key.
func Key(history []session.HistoryEntry, message string) string {
	h := sha256.New()
	for _, entry := range history {
		h.Write([]byte(entry.Role))
		h.Write([]byte{0})
		h.Write([]byte(entry.Content))
		h.Write([]byte{0})
	}
	h.Write([]byte(message))
	return fmt.Sprintf("%x", h.Sum(nil))
}

package assistant

import (
	"context"

	"neotrace/internal/session"
)

// Suggestion is one quick-reply prompt shown before the first exchange.
type Suggestion struct {
	Label  string
	Prompt string
}

// suggestionVisibleBelow is the message count at which quick replies
// disappear; with the greeting plus one exchange the panel is past them.
const suggestionVisibleBelow = 3

var suggestions = []Suggestion{
	{Label: "Spot phishing", Prompt: "How do I recognize a phishing email?"},
	{Label: "Check a link", Prompt: "How do I use the URL Scanner?"},
	{Label: "Password safety", Prompt: "How do I pick a strong password and protect my accounts?"},
	{Label: "Fake images", Prompt: "How can I tell if an image is AI-generated or fake?"},
	{Label: "Start a career", Prompt: "How do I start a career in cybersecurity?"},
}

// Suggestions returns the quick-reply catalogue while the conversation is
// still fresh, nil once it has grown past the threshold. ClearHistory
// resets the count and brings them back.
func (s *Store) Suggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) >= suggestionVisibleBelow {
		return nil
	}
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)
	return out
}

// SelectSuggestion feeds the suggestion's prompt through the same send
// entry point as typed input.
func (s *Store) SelectSuggestion(ctx context.Context, sug Suggestion) *session.Message {
	return s.SendMessage(ctx, sug.Prompt)
}

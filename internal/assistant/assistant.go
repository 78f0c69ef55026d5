// Package assistant owns the conversational session: message history, panel
// state, the in-flight guard, and the send protocol that ties the transport
// and the offline knowledge base together. All session state is mutated here
// and nowhere else.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"neotrace/internal/feedback"
	"neotrace/internal/knowledge"
	"neotrace/internal/markdown"
	"neotrace/internal/session"
	"neotrace/internal/transport"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// Greeting seeds every fresh session.
const Greeting = "Hi! I'm the **NeoTrace assistant**. Ask me about phishing, password safety, our scanning tools, or how to start a security career."

const feedbackThanks = "Thanks for your feedback! It helps us make NeoTrace better."

// Transport performs one logical exchange against the assistant endpoint.
type Transport interface {
	Exchange(ctx context.Context, req transport.Request) transport.Result
}

// FeedbackSender submits one feedback entry.
type FeedbackSender interface {
	Submit(ctx context.Context, fb feedback.Feedback) error
}

// Store is the single authority over chat state. The chat path never
// returns an error: every failure resolves into a degraded assistant
// message so the UI layer needs no error handling of its own.
type Store struct {
	transport Transport
	feedback  FeedbackSender
	match     func(string) knowledge.Reply
	logger    *slog.Logger
	meter     metric.Meter

	mu          sync.Mutex
	id          string
	isOpen      bool
	isLoading   bool
	toolContext string
	nextID      int
	messages    []session.Message
	history     []session.HistoryEntry
}

// NewStore creates a session store seeded with the greeting message.
func NewStore(t Transport, fb FeedbackSender, logger *slog.Logger, meter metric.Meter) *Store {
	s := &Store{
		transport: t,
		feedback:  fb,
		match:     knowledge.Match,
		logger:    logger,
		meter:     meter,
		id:        uuid.NewString(),
	}
	s.appendLocked(session.RoleAssistant, Greeting, false)
	logger.Info("created new session", "session_id", s.id)
	return s
}

// appendLocked creates and appends a message; callers hold mu (or own the
// store exclusively during construction). IDs are strictly increasing and
// never reused within a sequence.
func (s *Store) appendLocked(role session.Role, content string, degraded bool) session.Message {
	s.nextID++
	msg := session.Message{
		ID:        s.nextID,
		Role:      role,
		Content:   content,
		Degraded:  degraded,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Open makes the panel visible. No effect on messages.
func (s *Store) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = true
}

// Close hides the panel. No effect on messages.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
}

// Toggle flips panel visibility.
func (s *Store) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = !s.isOpen
}

// IsOpen reports panel visibility.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// IsLoading reports whether an exchange is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// SetContext attaches a tool/page description to outgoing requests. It is
// replaced wholesale, never merged.
func (s *Store) SetContext(toolContext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolContext = toolContext
}

// Messages returns a snapshot of the transcript.
func (s *Store) Messages() []session.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]session.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SendMessage runs one exchange: append the user message, call the
// transport, and append either the delivered reply or an offline answer.
// Empty input and sends while an exchange is in flight are ignored and
// return nil. On return the exchange has fully resolved.
func (s *Store) SendMessage(ctx context.Context, text string) *session.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		s.logger.Debug("send ignored, exchange already in flight", "session_id", s.id)
		return nil
	}
	s.isLoading = true
	s.isOpen = true
	s.appendLocked(session.RoleUser, text, false)
	// The window holds prior turns only; this question joins the buffer
	// after the exchange resolves.
	window := session.Window(s.history)
	toolContext := s.toolContext
	s.mu.Unlock()

	res := s.transport.Exchange(ctx, transport.Request{
		Message: text,
		History: window,
		Context: toolContext,
	})

	reply := res.Reply
	degraded := false
	if res.Exhausted {
		answer := s.match(text)
		reply = answer.Text
		degraded = true
		s.logger.Warn("assistant offline, serving canned answer", "session_id", s.id, "topic", answer.Topic)
		if counter, err := s.meter.Int64Counter("chat.replies.degraded"); err == nil {
			counter.Add(ctx, 1)
		}
	}

	s.mu.Lock()
	msg := s.appendLocked(session.RoleAssistant, reply, degraded)
	s.history = append(s.history,
		session.HistoryEntry{Role: session.RoleUser, Content: text},
		session.HistoryEntry{Role: session.RoleAssistant, Content: reply},
	)
	s.isLoading = false
	s.mu.Unlock()

	if counter, err := s.meter.Int64Counter("chat.exchanges"); err == nil {
		counter.Add(ctx, 1)
	}
	return &msg
}

// ClearHistory resets the transcript to a fresh greeting and empties the
// outgoing history buffer. Panel visibility is untouched.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.history = nil
	s.nextID = 0
	s.appendLocked(session.RoleAssistant, Greeting, false)
	s.logger.Info("session history cleared", "session_id", s.id)
}

// SubmitFeedback sends one feedback entry and, on success, thanks the user
// in the transcript. This is the one path that surfaces errors directly.
func (s *Store) SubmitFeedback(ctx context.Context, rating int, comment, page string) error {
	if err := s.feedback.Submit(ctx, feedback.Feedback{Rating: rating, Message: comment, Page: page}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The thank-you is transcript furniture, not a conversational turn,
	// so it is not pushed into the outgoing history buffer.
	s.appendLocked(session.RoleAssistant, feedbackThanks, false)
	return nil
}

// RenderedMessage is a transcript entry converted to HTML for display.
type RenderedMessage struct {
	ID       int
	Role     session.Role
	HTML     string
	Degraded bool
}

// Transcript renders every message through the Markdown-subset renderer.
func (s *Store) Transcript() []RenderedMessage {
	msgs := s.Messages()
	out := make([]RenderedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = RenderedMessage{
			ID:       m.ID,
			Role:     m.Role,
			HTML:     markdown.Render(m.Content),
			Degraded: m.Degraded,
		}
	}
	return out
}

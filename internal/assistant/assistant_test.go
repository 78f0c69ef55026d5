package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"neotrace/internal/feedback"
	"neotrace/internal/knowledge"
	"neotrace/internal/session"
	"neotrace/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []transport.Request
	result   transport.Result
	gate     chan struct{} // when set, Exchange blocks until closed
}

func (f *fakeTransport) Exchange(_ context.Context, req transport.Request) transport.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	res := f.result
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return res
}

func (f *fakeTransport) lastRequest() transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeFeedback struct {
	submitted []feedback.Feedback
	err       error
}

func (f *fakeFeedback) Submit(_ context.Context, fb feedback.Feedback) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, fb)
	return nil
}

func newTestStore(ft *fakeTransport, ff *fakeFeedback) *Store {
	if ff == nil {
		ff = &fakeFeedback{}
	}
	return NewStore(ft, ff, slog.New(slog.NewTextHandler(io.Discard, nil)), metricnoop.NewMeterProvider().Meter("test"))
}

func TestNewStoreSeedsGreeting(t *testing.T) {
	s := newTestStore(&fakeTransport{}, nil)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.RoleAssistant, msgs[0].Role)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.Equal(t, 1, msgs[0].ID)
	assert.False(t, s.IsLoading())
}

func TestSendMessageDelivered(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "Go to the URL Scanner page and paste the link."}}
	s := newTestStore(ft, nil)

	reply := s.SendMessage(context.Background(), "How do I use the URL Scanner?")
	require.NotNil(t, reply)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, session.RoleUser, msgs[1].Role)
	assert.Equal(t, "How do I use the URL Scanner?", msgs[1].Content)
	assert.Equal(t, session.RoleAssistant, msgs[2].Role)
	assert.False(t, msgs[2].Degraded)
	assert.False(t, s.IsLoading())
	assert.True(t, s.IsOpen(), "sending must open the panel")
}

func TestSendMessageDegraded(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Exhausted: true}}
	s := newTestStore(ft, nil)

	reply := s.SendMessage(context.Background(), "tell me about certifications")
	require.NotNil(t, reply)
	assert.True(t, reply.Degraded)
	assert.Equal(t, knowledge.Match("tell me about certifications").Text, reply.Content)
	assert.False(t, s.IsLoading())
}

func TestSendMessageIgnoresEmptyInput(t *testing.T) {
	s := newTestStore(&fakeTransport{}, nil)
	assert.Nil(t, s.SendMessage(context.Background(), ""))
	assert.Nil(t, s.SendMessage(context.Background(), "   \n\t"))
	assert.Len(t, s.Messages(), 1)
}

func TestSendMessageTrimsInput(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)
	s.SendMessage(context.Background(), "  hello  ")
	assert.Equal(t, "hello", ft.lastRequest().Message)
}

func TestAtMostOneInFlight(t *testing.T) {
	gate := make(chan struct{})
	ft := &fakeTransport{result: transport.Result{Reply: "done"}, gate: gate}
	s := newTestStore(ft, nil)

	done := make(chan *session.Message, 1)
	go func() {
		done <- s.SendMessage(context.Background(), "first")
	}()

	require.Eventually(t, s.IsLoading, time.Second, time.Millisecond)

	// The second send arrives while the first is pending and must be a
	// no-op with no state change.
	assert.Nil(t, s.SendMessage(context.Background(), "second"))

	close(gate)
	require.NotNil(t, <-done)

	msgs := s.Messages()
	require.Len(t, msgs, 3, "exactly one user and one assistant message appended")
	assert.Equal(t, "first", msgs[1].Content)
	assert.False(t, s.IsLoading())
}

func TestHistoryWindowBound(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "reply"}}
	s := newTestStore(ft, nil)

	const exchanges = 9
	for n := 1; n <= exchanges; n++ {
		text := fmt.Sprintf("question %d", n)
		require.NotNil(t, s.SendMessage(context.Background(), text))

		sent := ft.lastRequest()
		want := 2 * (n - 1)
		if want > session.HistoryWindow {
			want = session.HistoryWindow
		}
		assert.Len(t, sent.History, want, "exchange %d", n)

		// The in-flight question is never part of its own window.
		for _, entry := range sent.History {
			assert.NotEqual(t, text, entry.Content)
		}
	}
}

func TestDegradedReplyEntersHistoryBuffer(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Exhausted: true}}
	s := newTestStore(ft, nil)

	s.SendMessage(context.Background(), "what is phishing")

	ft.mu.Lock()
	ft.result = transport.Result{Reply: "ok"}
	ft.mu.Unlock()

	s.SendMessage(context.Background(), "thanks")
	sent := ft.lastRequest()
	require.Len(t, sent.History, 2)
	assert.Equal(t, knowledge.Match("what is phishing").Text, sent.History[1].Content)
}

func TestToolContextAttached(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)

	s.SetContext("phone lookup result: risk 82/100")
	s.SendMessage(context.Background(), "explain this score")
	assert.Equal(t, "phone lookup result: risk 82/100", ft.lastRequest().Context)

	s.SetContext("url scanner")
	s.SendMessage(context.Background(), "and now?")
	assert.Equal(t, "url scanner", ft.lastRequest().Context)
}

func TestClearHistory(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)
	s.SendMessage(context.Background(), "hello")
	s.Open()

	s.ClearHistory()

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.RoleAssistant, msgs[0].Role)
	assert.Equal(t, 1, msgs[0].ID)
	assert.True(t, s.IsOpen(), "clearing history must not touch panel state")

	// The outgoing window starts over too.
	s.SendMessage(context.Background(), "fresh start")
	assert.Empty(t, ft.lastRequest().History)
}

func TestMessageIDsStrictlyIncreasing(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)
	s.SendMessage(context.Background(), "one")
	s.SendMessage(context.Background(), "two")

	msgs := s.Messages()
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
}

func TestPanelToggleLeavesMessagesAlone(t *testing.T) {
	s := newTestStore(&fakeTransport{}, nil)
	s.Open()
	assert.True(t, s.IsOpen())
	s.Toggle()
	assert.False(t, s.IsOpen())
	s.Close()
	assert.False(t, s.IsOpen())
	assert.Len(t, s.Messages(), 1)
}

func TestSuggestionsVisibility(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)

	assert.NotEmpty(t, s.Suggestions(), "visible before the first exchange")

	s.SendMessage(context.Background(), "hello")
	assert.Nil(t, s.Suggestions(), "hidden once the conversation has grown")

	s.ClearHistory()
	assert.NotEmpty(t, s.Suggestions(), "reset brings them back")
}

func TestSelectSuggestionSends(t *testing.T) {
	ft := &fakeTransport{result: transport.Result{Reply: "ok"}}
	s := newTestStore(ft, nil)

	sugs := s.Suggestions()
	require.NotEmpty(t, sugs)
	reply := s.SelectSuggestion(context.Background(), sugs[0])
	require.NotNil(t, reply)
	assert.Equal(t, sugs[0].Prompt, ft.lastRequest().Message)
}

func TestSubmitFeedbackAppendsThanks(t *testing.T) {
	ff := &fakeFeedback{}
	s := newTestStore(&fakeTransport{}, ff)

	err := s.SubmitFeedback(context.Background(), 5, "love it", "dashboard")
	require.NoError(t, err)
	require.Len(t, ff.submitted, 1)
	assert.Equal(t, 5, ff.submitted[0].Rating)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "feedback")
}

func TestSubmitFeedbackSurfacesError(t *testing.T) {
	ff := &fakeFeedback{err: errors.New("boom")}
	s := newTestStore(&fakeTransport{}, ff)

	err := s.SubmitFeedback(context.Background(), 3, "", "dashboard")
	assert.Error(t, err)
	assert.Len(t, s.Messages(), 1, "no thank-you on failure")
}

func TestTranscriptRendersMarkdown(t *testing.T) {
	s := newTestStore(&fakeTransport{}, nil)
	rendered := s.Transcript()
	require.Len(t, rendered, 1)
	assert.Contains(t, rendered[0].HTML, "<strong>NeoTrace assistant</strong>")
}

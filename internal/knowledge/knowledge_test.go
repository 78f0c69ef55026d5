package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKeywords(t *testing.T) {
	cases := []struct {
		query string
		topic string
	}{
		{"How do I use the URL Scanner?", "url-scanner"},
		{"is this LINK safe", "url-scanner"},
		{"What is phishing?", "phishing"},
		{"I got a scam text", "phishing"},
		{"how do I protect my account", "passwords"},
		{"should I enable 2fa", "passwords"},
		{"tell me about certifications", "certifications"},
		{"is the OSCP worth it", "certifications"},
		{"what does a SOC analyst job pay", "careers"},
		{"is this image fake", "image-forensics"},
	}

	for _, tc := range cases {
		got := Match(tc.query)
		assert.Equal(t, tc.topic, got.Topic, "query %q", tc.query)
		assert.NotEmpty(t, got.Text)
	}
}

func TestMatchFallback(t *testing.T) {
	got := Match("asdkjalksd")
	assert.Equal(t, "general", got.Topic)
	assert.Contains(t, got.Text, "NeoTrace")
}

func TestMatchTableOrderWins(t *testing.T) {
	// Both the url-scanner and phishing topics match; the earlier table
	// entry must take precedence.
	got := Match("someone sent me a phishing url")
	assert.Equal(t, "url-scanner", got.Topic)
}

func TestMatchDeterministic(t *testing.T) {
	first := Match("What is phishing?")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Match("What is phishing?"))
	}
}

func TestTopicAnswersCarryMarkdown(t *testing.T) {
	for _, topic := range Topics() {
		assert.NotEmpty(t, topic.Keywords, "topic %s", topic.Name)
		assert.NotEmpty(t, topic.Answer, "topic %s", topic.Name)
	}
}

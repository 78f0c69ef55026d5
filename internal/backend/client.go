// Package backend holds the server-side connectors to hosted LLM providers.
// Each connector turns a system prompt plus conversation turns into one
// reply string; provider selection happens once at startup.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"neotrace/internal/config"
	"neotrace/internal/session"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Client sends a conversation to an LLM provider and returns the reply text.
type Client interface {
	Name() string
	Chat(ctx context.Context, system string, turns []session.HistoryEntry) (string, error)
}

// deps bundles what every connector shares.
type deps struct {
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

// New creates the connector named by cfg.Backend.
func New(cfg *config.Config, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) (Client, error) {
	d := deps{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
	}
	switch cfg.Backend {
	case config.BackendAnthropic:
		return &anthropicClient{deps: d, url: "https://api.anthropic.com/v1/messages"}, nil
	case config.BackendOpenAI:
		return &openAIClient{deps: d, name: config.BackendOpenAI, url: "https://api.openai.com/v1/chat/completions", model: "gpt-4o-mini", envKey: "OPENAI_API_KEY"}, nil
	case config.BackendGrok:
		return &openAIClient{deps: d, name: config.BackendGrok, url: "https://api.grok.x.ai/v1/chat/completions", model: "grok-1", envKey: "GROK_API_KEY"}, nil
	case config.BackendOllama:
		return &ollamaClient{deps: d, url: "http://localhost:11434/api/chat", model: cfg.OllamaModel}, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

// recordUsage records token usage counters reported by the provider.
func (d deps) recordUsage(ctx context.Context, usage map[string]interface{}) {
	if usage == nil {
		return
	}
	for key, value := range usage {
		if intVal, ok := value.(float64); ok {
			counter, err := d.meter.Int64Counter(
				fmt.Sprintf("llm.usage.%s", key),
				metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
			)
			if err != nil {
				d.logger.Warn("failed to create counter", "key", key, "error", err)
				continue
			}
			counter.Add(ctx, int64(intVal))
		}
	}
}

// recordDuration records the upstream round-trip time.
func (d deps) recordDuration(ctx context.Context, start time.Time) {
	histogram, err := d.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
}

// doJSON posts the payload and returns the raw response body.
func (d deps) doJSON(ctx context.Context, url string, payload any, header http.Header) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}
	return body, nil
}

type anthropicClient struct {
	deps
	url string
}

func (c *anthropicClient) Name() string { return config.BackendAnthropic }

func (c *anthropicClient) Chat(ctx context.Context, system string, turns []session.HistoryEntry) (string, error) {
	ctx, span := c.tracer.Start(ctx, "anthropic_api_call")
	defer span.End()
	start := time.Now()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	reqMessages := make([]AnthropicMessage, len(turns))
	for i, turn := range turns {
		reqMessages[i] = AnthropicMessage{Role: string(turn.Role), Content: turn.Content}
	}

	header := http.Header{}
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", "2023-06-01")

	body, err := c.doJSON(ctx, c.url, AnthropicRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
		System:    system,
		Messages:  reqMessages,
	}, header)
	if err != nil {
		return "", err
	}

	var apiResp AnthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordDuration(ctx, start)
	c.recordUsage(ctx, apiResp.Usage)

	for _, content := range apiResp.Content {
		if content.Type == "text" {
			return content.Text, nil
		}
	}
	return "", fmt.Errorf("empty response from Anthropic")
}

type openAIClient struct {
	deps
	name   string
	url    string
	model  string
	envKey string
}

func (c *openAIClient) Name() string { return c.name }

func (c *openAIClient) Chat(ctx context.Context, system string, turns []session.HistoryEntry) (string, error) {
	ctx, span := c.tracer.Start(ctx, c.name+"_api_call")
	defer span.End()
	start := time.Now()

	apiKey := os.Getenv(c.envKey)
	if apiKey == "" {
		return "", fmt.Errorf("%s not set", c.envKey)
	}

	reqMessages := make([]map[string]string, 0, len(turns)+1)
	if system != "" {
		reqMessages = append(reqMessages, map[string]string{"role": "system", "content": system})
	}
	for _, turn := range turns {
		reqMessages = append(reqMessages, map[string]string{"role": string(turn.Role), "content": turn.Content})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)

	body, err := c.doJSON(ctx, c.url, OpenAIRequest{Model: c.model, Messages: reqMessages}, header)
	if err != nil {
		return "", err
	}

	var apiResp OpenAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordDuration(ctx, start)
	c.recordUsage(ctx, apiResp.Usage)

	if len(apiResp.Choices) > 0 {
		return apiResp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("empty response from %s", c.name)
}

type ollamaClient struct {
	deps
	url   string
	model string
}

func (c *ollamaClient) Name() string { return config.BackendOllama }

func (c *ollamaClient) Chat(ctx context.Context, system string, turns []session.HistoryEntry) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_api_call")
	defer span.End()
	start := time.Now()

	reqMessages := make([]map[string]string, 0, len(turns)+1)
	if system != "" {
		reqMessages = append(reqMessages, map[string]string{"role": "system", "content": system})
	}
	for _, turn := range turns {
		reqMessages = append(reqMessages, map[string]string{"role": string(turn.Role), "content": turn.Content})
	}

	body, err := c.doJSON(ctx, c.url, OllamaRequest{
		Model:    c.model,
		Messages: reqMessages,
		Stream:   false,
	}, nil)
	if err != nil {
		return "", err
	}

	var apiResp OllamaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordDuration(ctx, start)
	return apiResp.Message.Content, nil
}

// Package transport performs one logical exchange against the assistant
// endpoint with bounded retries. Exhaustion is a result, not an error, so
// the caller can branch to the offline path without inspecting error types.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"neotrace/internal/session"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAttempts  = 3 // 1 initial call + 2 retries
	defaultBaseDelay = 2 * time.Second
	defaultTimeout   = 60 * time.Second
)

// Request carries one exchange to the assistant endpoint.
type Request struct {
	Message string                 `json:"message"`
	History []session.HistoryEntry `json:"history"`
	Context string                 `json:"context,omitempty"`
}

// Result of one logical exchange. Exhausted is true when every attempt
// failed; Reply is only meaningful when Exhausted is false.
type Result struct {
	Reply     string
	Exhausted bool
}

type response struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

// Config tunes the client. Zero values fall back to the production policy
// (3 attempts, 2s base delay doubling per retry, 60s per-attempt timeout).
type Config struct {
	BaseURL   string
	Attempts  uint
	BaseDelay time.Duration
	Timeout   time.Duration
}

// Client is the retry/backoff transport for the chat endpoint.
type Client struct {
	baseURL    string
	attempts   uint
	baseDelay  time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

// NewClient creates a transport client.
func NewClient(cfg Config, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		attempts:   cfg.Attempts,
		baseDelay:  cfg.BaseDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
	}
}

// Exchange sends the request, retrying on any failure with sequential
// backoff. It never returns an error: after the retry ceiling it reports
// Exhausted instead.
func (c *Client) Exchange(ctx context.Context, req Request) Result {
	ctx, span := c.tracer.Start(ctx, "assistant_exchange")
	defer span.End()

	reply, err := retry.DoWithData(
		func() (string, error) {
			return c.post(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("assistant request failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		c.logger.Error("assistant unreachable, all attempts failed", "attempts", c.attempts, "error", err)
		counter, cerr := c.meter.Int64Counter("chat.transport.exhausted")
		if cerr == nil {
			counter.Add(ctx, 1)
		}
		return Result{Exhausted: true}
	}
	return Result{Reply: reply}
}

// post performs a single attempt.
func (c *Client) post(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chatbot", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	duration := time.Since(start)
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}

	// A 2xx body with an error field is the remote explicitly refusing;
	// that text is still a delivered reply.
	if apiResp.Reply == "" && apiResp.Error != "" {
		return apiResp.Error, nil
	}
	return apiResp.Reply, nil
}

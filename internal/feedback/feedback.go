// Package feedback submits user feedback in a single shot. Unlike the chat
// transport it does not retry: losing a feedback form is low-stakes, and the
// failure is surfaced to the caller instead of being absorbed.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrEmpty is returned when neither a rating nor a comment was provided.
var ErrEmpty = errors.New("feedback requires a rating or a comment")

// Feedback is one submission. Rating 0 means unset.
type Feedback struct {
	Rating  int    `json:"rating"`
	Message string `json:"message"`
	Page    string `json:"page"`
}

type response struct {
	Success bool `json:"success"`
}

// Client posts feedback to the API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feedback client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Submit validates and posts one feedback entry.
func (c *Client) Submit(ctx context.Context, fb Feedback) error {
	if fb.Rating < 0 || fb.Rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5, got %d", fb.Rating)
	}
	if fb.Rating == 0 && fb.Message == "" {
		return ErrEmpty
	}

	jsonData, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/feedback", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !apiResp.Success {
		return errors.New("server rejected feedback")
	}

	c.logger.Info("feedback submitted", "rating", fb.Rating, "page", fb.Page)
	return nil
}

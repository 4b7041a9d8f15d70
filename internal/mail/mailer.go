// Package mail delivers transactional email through an HTTP API provider.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the provider's message-send endpoint.
const DefaultEndpoint = "https://api.resend.com/emails"

// Client sends email through the provider's JSON API.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	from     string
}

func NewClient(apiKey, from string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		from:     from,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("recipient required")
	}
	body, err := json.Marshal(map[string]any{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer logs instead of sending. Used when no API key is configured,
// so development environments never need provider credentials.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.logger.Info("mail suppressed (no provider key)",
		zap.String("to", to), zap.String("subject", subject))
	return nil
}

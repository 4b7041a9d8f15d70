// Package workflow sends webhook payloads to the external automation
// engine that performs the report analysis. The engine is out of scope;
// only its HTTP surface is known here.
package workflow

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

// Dispatcher posts survey payloads and chat triggers to configured
// webhook URLs.
type Dispatcher struct {
	client    *http.Client
	surveyURL string
	chatURL   string
	authToken string
	logger    *zap.Logger
}

func NewDispatcher(surveyURL, chatURL, authToken string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		surveyURL: surveyURL,
		chatURL:   chatURL,
		authToken: authToken,
		logger:    logger,
	}
}

// DispatchSurvey forwards the full answer payload plus the report id to
// the survey-analysis webhook.
func (d *Dispatcher) DispatchSurvey(ctx context.Context, reportID string, payload json.RawMessage) error {
	if d.surveyURL == "" {
		return fmt.Errorf("survey webhook url not configured")
	}
	body := map[string]any{
		"report_id": reportID,
		"payload":   payload,
	}
	return d.post(ctx, d.surveyURL, body)
}

// DispatchChat triggers the chat workflow for an already-analyzed report.
func (d *Dispatcher) DispatchChat(ctx context.Context, reportID string) error {
	if d.chatURL == "" {
		return fmt.Errorf("chat webhook url not configured")
	}
	return d.post(ctx, d.chatURL, map[string]any{"report_id": reportID})
}

func (d *Dispatcher) post(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Warn("webhook rejected", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

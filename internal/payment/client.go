// Package payment creates hosted checkout sessions with the external
// payment provider. Card handling never touches this codebase; the user
// is redirected to the provider-hosted page.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careerlens/careerlens/internal/services"
)

// DefaultEndpoint is the provider's checkout-session endpoint.
const DefaultEndpoint = "https://api.stripe.com/v1/checkout/sessions"

// Client implements services.PaymentClient against the provider's
// form-encoded API.
type Client struct {
	http       *http.Client
	endpoint   string
	secretKey  string
	successURL string
	cancelURL  string
}

func NewClient(secretKey, successURL, cancelURL string) *Client {
	return &Client{
		http:       &http.Client{Timeout: 20 * time.Second},
		endpoint:   DefaultEndpoint,
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req services.CheckoutRequest) (*services.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer_email", req.Email)
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)
	form.Set("metadata[first_name]", req.FirstName)
	form.Set("metadata[last_name]", req.LastName)
	form.Set("metadata[country]", req.Country)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &services.CheckoutSession{SessionID: out.ID, URL: out.URL}, nil
}

var _ services.PaymentClient = (*Client)(nil)

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manasa1349/payment-gateway-task/utils"
)

const maxResponseBody = 4096

// DeliveryResult describes one POST to a merchant endpoint. StatusCode is
// zero when no HTTP response was received.
type DeliveryResult struct {
	StatusCode int
	Body       string
	Err        error
}

func (r DeliveryResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// WebhookClient posts signed envelopes to merchant endpoints.
type WebhookClient struct {
	httpClient *http.Client
}

func NewWebhookClient(timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts body verbatim with its HMAC signature over the same bytes.
func (wc *WebhookClient) Send(ctx context.Context, url string, body []byte, secret string) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(utils.SignatureHeader, utils.SignWebhook(body, secret))

	resp, err := wc.httpClient.Do(req)
	if err != nil {
		return DeliveryResult{Err: err}
	}
	defer resp.Body.Close()

	// The status code decides the attempt; a truncated body is still recorded.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return DeliveryResult{StatusCode: resp.StatusCode, Body: string(respBody)}
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const webhookUserAgent = "pulseguard-webhook/1.0"

// WebhookPayload is the JSON body POSTed to a configured webhook URL.
type WebhookPayload struct {
	EventID      string    `json:"event_id"`
	Alert        string    `json:"alert"`
	Monitor      string    `json:"monitor"`
	URL          string    `json:"url"`
	Status       string    `json:"status"` // "UP" | "DOWN"
	ResponseTime int64     `json:"responseTime"`
	StatusCode   int       `json:"statusCode"`
	Timestamp    time.Time `json:"timestamp"`
}

type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Post delivers the payload to url with the configured extra headers. Any
// non-2xx response is an error.
func (w *WebhookSender) Post(ctx context.Context, url string, headers map[string]string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

package auditlogs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NeuralTrust/ThreatGuard/pkg/infra/httpx"
)

var ErrWebhookRejected = errors.New("webhook rejected audit event")

// WebhookSink posts each event as JSON. Calls go through a circuit breaker
// so a dead endpoint costs one fast failure per event instead of a timeout.
type WebhookSink struct {
	url     string
	client  httpx.Client
	breaker httpx.CircuitBreaker
}

func NewWebhookSink(url string, client httpx.Client, breaker httpx.CircuitBreaker) *WebhookSink {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookSink{url: url, client: client, breaker: breaker}
}

func (s *WebhookSink) LogViolation(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if s.breaker == nil {
		return s.post(ctx, body)
	}
	return s.breaker.Execute(func() error {
		return s.post(ctx, body)
	})
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call audit webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}
	return nil
}

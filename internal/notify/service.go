// Package notify delivers failure alerts to tenant administrators.
// The built-in delivery path is a signed webhook POST; additional
// drivers (email, Slack) can be registered at wiring time.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/contracts"
	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// DefaultMaxRetries bounds webhook delivery attempts.
const DefaultMaxRetries = 3

// WebhookNotifier posts failure alerts as JSON to a configured webhook
// URL with optional HMAC-SHA256 signing.
type WebhookNotifier struct {
	url        string
	secret     string
	client     *http.Client
	maxRetries uint64
}

// Option configures a WebhookNotifier.
type Option func(*WebhookNotifier)

// WithSecret enables HMAC-SHA256 payload signing.
func WithSecret(secret string) Option {
	return func(n *WebhookNotifier) { n.secret = secret }
}

// WithMaxRetries overrides the delivery attempt budget.
func WithMaxRetries(retries int) Option {
	return func(n *WebhookNotifier) {
		if retries > 0 {
			n.maxRetries = uint64(retries)
		}
	}
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(n *WebhookNotifier) { n.client = client }
}

// NewWebhookNotifier creates a notifier posting to the given URL.
func NewWebhookNotifier(url string, opts ...Option) *WebhookNotifier {
	n := &WebhookNotifier{
		url:        url,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ contracts.AlertNotifier = (*WebhookNotifier)(nil)

// NotifyFailure delivers one alert. Delivery retries with exponential
// backoff up to the configured attempt budget; transport errors and
// non-2xx responses both count as failed attempts.
func (n *WebhookNotifier) NotifyFailure(ctx context.Context, alert *models.FailureAlert) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	operation := func() error {
		return n.post(ctx, alert, body)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Warn().Err(err).
			Str("chatbot_id", alert.ChatbotID).
			Str("stage", alert.Stage).
			Msg("Failure alert delivery exhausted retries")
		return fmt.Errorf("alert delivery failed after %d attempts: %w", n.maxRetries, err)
	}

	log.Info().
		Str("chatbot_id", alert.ChatbotID).
		Str("severity", string(alert.Severity)).
		Str("stage", alert.Stage).
		Msg("Failure alert delivered")
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, alert *models.FailureAlert, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build alert request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Severity", string(alert.Severity))
	req.Header.Set("X-Alert-Chatbot", alert.ChatbotID)

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		req.Header.Set("X-Alert-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, n.url))
	}
	return fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, n.url)
}

// LogNotifier is the fallback used when no webhook URL is configured.
// Alerts land in the structured log and nowhere else.
type LogNotifier struct{}

var _ contracts.AlertNotifier = (*LogNotifier)(nil)

// NotifyFailure records the alert at warn level.
func (LogNotifier) NotifyFailure(_ context.Context, alert *models.FailureAlert) error {
	log.Warn().
		Str("chatbot_id", alert.ChatbotID).
		Str("tenant_id", alert.TenantID).
		Str("severity", string(alert.Severity)).
		Str("stage", alert.Stage).
		Str("message", alert.Message).
		Msg("Reasoning failure alert")
	return nil
}

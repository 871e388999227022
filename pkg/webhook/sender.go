package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beautydesk/backoffice/pkg/logger"
)

// Config holds the chat webhook settings.
type Config struct {
	SigningSecret string        `env:"CHAT_WEBHOOK_SECRET"`
	MaxRetries    int           `env:"CHAT_WEBHOOK_MAX_RETRIES" envDefault:"2"`
	Timeout       time.Duration `env:"CHAT_WEBHOOK_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether a signing secret is configured.
func (c Config) Enabled() bool { return c.SigningSecret != "" }

// Sender posts signed JSON payloads to customer-provided endpoints.
type Sender struct {
	client     *http.Client
	secret     string
	maxRetries int
	backoff    Backoff
	breakers   *breakers
	now        func() time.Time
	logger     *slog.Logger
}

// NewSender creates a sender signing with secret. Panics on empty secret.
func NewSender(secret string, opts ...Option) *Sender {
	if secret == "" {
		panic(ErrMissingSecret)
	}
	s := &Sender{
		client:     &http.Client{Timeout: 10 * time.Second},
		secret:     secret,
		maxRetries: 2,
		backoff:    DefaultBackoff(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSenderFromConfig builds a Sender from cfg plus extra options.
func NewSenderFromConfig(cfg Config, opts ...Option) *Sender {
	base := []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	return NewSender(cfg.SigningSecret, append(base, opts...)...)
}

// Send marshals payload and posts it to endpoint, retrying transient
// failures. 4xx responses other than 408, 425 and 429 are not retried.
// Cancelling ctx stops retries.
func (s *Sender) Send(ctx context.Context, endpoint string, payload any) error {
	u, err := validateURL(endpoint)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if s.breakers != nil && !s.breakers.allow(u.Host) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, u.Host)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ErrDeliveryFailed, lastErr, ctx.Err())
			case <-time.After(s.backoff.Delay(attempt)):
			}
		}

		status, err := s.post(ctx, endpoint, body)
		if err == nil {
			if s.breakers != nil {
				s.breakers.success(u.Host)
			}
			return nil
		}
		lastErr = err
		s.logger.WarnContext(ctx, "chat webhook attempt failed",
			slog.String("host", u.Host),
			slog.Int("attempt", attempt+1),
			slog.Int("status", status),
			logger.Error(err),
		)

		if permanent(status) {
			s.fail(u.Host)
			return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
		}
	}

	s.fail(u.Host)
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, s.maxRetries+1, lastErr)
}

func (s *Sender) fail(host string) {
	if s.breakers != nil {
		s.breakers.failure(host)
	}
}

func (s *Sender) post(ctx context.Context, endpoint string, body []byte) (int, error) {
	sig, err := Sign(s.secret, body, s.now())
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "beautydesk-webhook/1.0")
	sig.Apply(req.Header)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.ReplaceAll(strings.TrimSpace(string(snippet)), "\n", " ")
	return resp.StatusCode, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, msg)
}

func permanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

func validateURL(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return u, nil
}

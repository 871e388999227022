package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers one transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"-"`
	Tag     string `json:"tag,omitempty"` // trigger key, for provider analytics
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the message before it reaches a provider.
func (m Message) Validate() error {
	to := strings.TrimSpace(m.To)
	switch {
	case to == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case !emailRegex.MatchString(to):
		return fmt.Errorf("%w: invalid recipient %q", ErrInvalidMessage, m.To)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.HTML) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// NewSender returns a Postmark sender when tokens are configured and a
// DevSender otherwise.
func NewSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" && cfg.PostmarkAccountToken == "" {
		if cfg.DevDir == "" {
			return nil, fmt.Errorf("%w: neither postmark tokens nor dev dir configured", ErrInvalidConfig)
		}
		return NewDevSender(cfg.DevDir), nil
	}
	p, err := NewPostmark(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

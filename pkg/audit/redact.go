package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// Redaction is what happens to a metadata value whose key matches a rule.
type Redaction uint8

const (
	Keep Redaction = iota
	Drop
	Hash
	Mask
)

type redactRule struct {
	pattern string
	action  Redaction
}

// Redactor rewrites entry metadata before it is stored. Rules are glob
// patterns over lower-cased keys (see path.Match); the first matching rule wins.
type Redactor struct {
	rules []redactRule
}

// defaultRedactions cover credentials and the contact data stored on organizations.
var defaultRedactions = []redactRule{
	{"password", Drop},
	{"*secret", Drop},
	{"*token", Drop},
	{"api_key", Drop},
	{"card_number", Mask},
	{"iban", Mask},
	{"*email", Hash},
	{"recipient", Hash},
	{"*phone", Mask},
	{"chat_webhook_url", Mask},
}

// RedactOption configures a Redactor.
type RedactOption func(*redactorBuilder)

type redactorBuilder struct {
	custom   []redactRule
	defaults bool
}

// Redact adds a rule. Custom rules are checked before the defaults.
func Redact(pattern string, action Redaction) RedactOption {
	return func(b *redactorBuilder) {
		b.custom = append(b.custom, redactRule{strings.ToLower(pattern), action})
	}
}

// Allow lets matching keys through untouched, overriding the defaults.
func Allow(pattern string) RedactOption {
	return Redact(pattern, Keep)
}

// WithoutDefaultRedactions keeps only the rules added with Redact and Allow.
func WithoutDefaultRedactions() RedactOption {
	return func(b *redactorBuilder) { b.defaults = false }
}

// NewRedactor returns a Redactor with the default rules unless disabled.
func NewRedactor(opts ...RedactOption) *Redactor {
	b := &redactorBuilder{defaults: true}
	for _, opt := range opts {
		opt(b)
	}
	rules := b.custom
	if b.defaults {
		rules = append(rules, defaultRedactions...)
	}
	return &Redactor{rules: rules}
}

// Apply returns a redacted copy of metadata. Dropped keys are omitted.
func (r *Redactor) Apply(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		switch r.actionFor(strings.ToLower(key)) {
		case Drop:
		case Hash:
			sum := sha256.Sum256([]byte(fmt.Sprint(value)))
			out[key] = hex.EncodeToString(sum[:])
		case Mask:
			out[key] = mask(fmt.Sprint(value))
		default:
			out[key] = value
		}
	}
	return out
}

func (r *Redactor) actionFor(key string) Redaction {
	for _, rule := range r.rules {
		// Malformed patterns never match.
		if ok, _ := path.Match(rule.pattern, key); ok {
			return rule.action
		}
	}
	return Keep
}

// mask hides everything but a short prefix and suffix.
func mask(s string) string {
	n := len(s)
	keep := 0
	switch {
	case n > 8:
		keep = 2
	case n > 4:
		keep = 1
	}
	return s[:keep] + strings.Repeat("*", n-2*keep) + s[n-keep:]
}

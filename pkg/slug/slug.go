package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength bounds generated slugs so they fit routing keys.
const DefaultMaxLength = 63

// Option configures slug generation.
type Option func(*config)

type config struct {
	maxLength int
	replace   map[string]string
}

// MaxLength sets the maximum length of the generated slug. Zero disables the limit.
func MaxLength(n int) Option {
	return func(c *config) {
		c.maxLength = n
	}
}

// CustomReplace applies string replacements before slugification, e.g. {"&": "and"}.
func CustomReplace(replacements map[string]string) Option {
	return func(c *config) {
		c.replace = replacements
	}
}

// Make turns s into a lowercase ASCII slug: diacritics are stripped,
// every other non-alphanumeric run becomes a single "-".
// "Institut Beauté & Spa" becomes "institut-beaute-spa".
func Make(s string, opts ...Option) string {
	cfg := &config{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(cfg)
	}

	for old, repl := range cfg.replace {
		s = strings.ReplaceAll(s, old, repl)
	}

	s = fold(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if isSlugRune(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	out := b.String()
	if cfg.maxLength > 0 && len(out) > cfg.maxLength {
		out = strings.TrimRight(out[:cfg.maxLength], "-")
	}
	return out
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	if s == "" || len(s) > DefaultMaxLength {
		return false
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if !isSlugRune(r) && r != '-' {
			return false
		}
	}
	return true
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// fold decomposes s and drops combining marks ("é" -> "e").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

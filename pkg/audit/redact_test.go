package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactor_Defaults(t *testing.T) {
	t.Parallel()

	got := NewRedactor().Apply(map[string]any{
		"plan":          "TEAM",
		"password":      "hunter2",
		"paddle_token":  "tok_123",
		"contact_email": "owner@salon.example",
		"phone":         "0612345678",
	})

	assert.Equal(t, "TEAM", got["plan"])
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "paddle_token")
	assert.Len(t, got["contact_email"], 64)
	assert.Equal(t, "06******78", got["phone"])
}

func TestRedactor_CustomRulesFirst(t *testing.T) {
	t.Parallel()

	r := NewRedactor(
		Redact("billing_ref", Mask),
		Redact("internal.*", Drop),
		Allow("email"),
	)
	got := r.Apply(map[string]any{
		"billing_ref":    "sub_0123456789",
		"internal.notes": "x",
		"email":          "ops@example.com",
		"Owner_Email":    "a@b.c",
	})

	assert.Equal(t, "su**********89", got["billing_ref"])
	assert.NotContains(t, got, "internal.notes")
	assert.Equal(t, "ops@example.com", got["email"])
	assert.Len(t, got["Owner_Email"], 64)
}

func TestRedactor_WithoutDefaults(t *testing.T) {
	t.Parallel()

	r := NewRedactor(WithoutDefaultRedactions())
	assert.Equal(t, "p", r.Apply(map[string]any{"password": "p"})["password"])
	assert.Nil(t, r.Apply(nil))
}

func TestMask(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "****", mask("abcd"))
	assert.Equal(t, "a****f", mask("abcdef"))
	assert.Equal(t, "ab*****hi", mask("abcdefghi"))
	assert.Equal(t, "", mask(""))
}

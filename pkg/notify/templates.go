package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/beautydesk/backoffice/pkg/email"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

// Channel is the medium a message is delivered through.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// Template is the message definition of one trigger. Subject and Body are Go
// templates over Vars; Body is HTML for email and plain text otherwise.
type Template struct {
	Channel Channel
	Subject string
	Body    string
}

// Vars are the organization-scoped values available to templates.
type Vars struct {
	Name          string
	Plan          string
	PlanPrice     string
	DashboardURL  string
	SupportEmail  string
	TrialDaysLeft int
}

// Rendered is a message ready to hand to a transport.
type Rendered struct {
	Channel Channel
	Subject string
	HTML    string
	Text    string
}

type compiled struct {
	channel Channel
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Templates is the parsed template set, one per trigger key.
type Templates struct {
	byKey map[trigger.Key]compiled
}

// NewTemplates parses defs. Every known trigger key must have a template.
func NewTemplates(defs map[trigger.Key]Template) (*Templates, error) {
	t := &Templates{byKey: make(map[trigger.Key]compiled, len(defs))}
	for _, key := range trigger.Keys() {
		def, ok := defs[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoTemplate, key)
		}
		c, err := compile(string(key), def)
		if err != nil {
			return nil, err
		}
		t.byKey[key] = c
	}
	return t, nil
}

// MustNewTemplates panics on invalid definitions.
func MustNewTemplates(defs map[trigger.Key]Template) *Templates {
	t, err := NewTemplates(defs)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(name string, def Template) (compiled, error) {
	c := compiled{channel: def.Channel}
	if strings.TrimSpace(def.Body) == "" {
		return c, fmt.Errorf("%w: %s has an empty body", ErrInvalidTemplate, name)
	}

	var err error
	if c.subject, err = texttemplate.New(name + ".subject").Option("missingkey=error").Parse(def.Subject); err != nil {
		return c, fmt.Errorf("%w: %s subject: %w", ErrInvalidTemplate, name, err)
	}

	switch def.Channel {
	case ChannelEmail:
		if strings.TrimSpace(def.Subject) == "" {
			return c, fmt.Errorf("%w: %s email needs a subject", ErrInvalidTemplate, name)
		}
		c.html, err = htmltemplate.New(name).Option("missingkey=error").Parse(def.Body)
	case ChannelSMS, ChannelChat:
		c.text, err = texttemplate.New(name).Option("missingkey=error").Parse(def.Body)
	default:
		return c, fmt.Errorf("%w: %s has unknown channel %q", ErrInvalidTemplate, name, def.Channel)
	}
	if err != nil {
		return c, fmt.Errorf("%w: %s body: %w", ErrInvalidTemplate, name, err)
	}
	return c, nil
}

// Channel returns the preferred channel of key.
func (t *Templates) Channel(key trigger.Key) (Channel, bool) {
	c, ok := t.byKey[key]
	return c.channel, ok
}

// Render renders key for vars. Email bodies are wrapped in the standard layout.
func (t *Templates) Render(ctx context.Context, key trigger.Key, vars Vars) (Rendered, error) {
	c, ok := t.byKey[key]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", ErrNoTemplate, key)
	}

	var subject bytes.Buffer
	if err := c.subject.Execute(&subject, vars); err != nil {
		return Rendered{}, fmt.Errorf("%w: %s subject: %w", ErrRenderFailed, key, err)
	}
	out := Rendered{Channel: c.channel, Subject: strings.TrimSpace(subject.String())}

	var body bytes.Buffer
	if c.html != nil {
		if err := c.html.Execute(&body, vars); err != nil {
			return Rendered{}, fmt.Errorf("%w: %s body: %w", ErrRenderFailed, key, err)
		}
		page, err := email.Render(ctx, layout(out.Subject, htmltemplate.HTML(body.String()), vars))
		if err != nil {
			return Rendered{}, fmt.Errorf("%w: %s layout: %w", ErrRenderFailed, key, err)
		}
		out.HTML = page
		out.Text = stripTags(body.String())
		return out, nil
	}

	if err := c.text.Execute(&body, vars); err != nil {
		return Rendered{}, fmt.Errorf("%w: %s body: %w", ErrRenderFailed, key, err)
	}
	out.Text = strings.TrimSpace(body.String())
	return out, nil
}

// stripTags gives a plain-text fallback of an HTML fragment for channels
// that cannot show markup.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

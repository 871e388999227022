package notify

import (
	"context"
	htmltemplate "html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// layout wraps a rendered email body in the shared frame: header, body and
// a footer with the dashboard link and support address.
func layout(subject string, body htmltemplate.HTML, vars Vars) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		parts := []string{
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(subject), `</title></head>`,
			`<body style="margin:0;padding:0;background:#f6f4f2;font-family:Helvetica,Arial,sans-serif;color:#2b2b2b">`,
			`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px">`,
			`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px">`,
			`<tr><td style="padding:24px 32px;font-size:20px;font-weight:bold;color:#8a4f7d">BeautyDesk</td></tr>`,
			`<tr><td style="padding:0 32px 24px;font-size:15px;line-height:1.6">`, string(body), `</td></tr>`,
			`<tr><td style="padding:16px 32px;border-top:1px solid #eee;font-size:12px;color:#888">`,
		}
		if vars.DashboardURL != "" {
			parts = append(parts, `<a href="`, templ.EscapeString(vars.DashboardURL), `" style="color:#8a4f7d">Open your dashboard</a> · `)
		}
		if vars.SupportEmail != "" {
			parts = append(parts, `Questions? <a href="mailto:`, templ.EscapeString(vars.SupportEmail), `" style="color:#8a4f7d">`,
				templ.EscapeString(vars.SupportEmail), `</a>`)
		}
		parts = append(parts, `</td></tr></table></td></tr></table></body></html>`)

		for _, p := range parts {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// textToHTML escapes plain text and keeps its line breaks.
func textToHTML(s string) htmltemplate.HTML {
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(htmltemplate.HTMLEscapeString(line))
	}
	return htmltemplate.HTML("<p>" + b.String() + "</p>")
}

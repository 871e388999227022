// Package notify renders and delivers engagement messages for due triggers.
//
// Each trigger key has one template with a preferred channel (email, SMS or
// chat webhook). When the organization has no address for the preferred
// channel, or no transport is configured for it, the message falls back to
// email. Delivery is at most once per firing: the firing record is written
// only after the channel accepted the message, and an existing record makes
// Dispatch a no-op.
//
//	templates := notify.MustNewTemplates(notify.DefaultTemplates())
//	d := notify.NewDispatcher(firings, templates, trail,
//		notify.WithTransport(notify.ChannelEmail, notify.EmailTransport(mailer)),
//		notify.WithTransport(notify.ChannelSMS, notify.SMSTransport(texter)),
//		notify.WithTransport(notify.ChannelChat, notify.ChatTransport(hooks)),
//		notify.WithLinks("https://app.beautydesk.io", "support@beautydesk.io"),
//	)
//	res := d.Dispatch(ctx, notify.RecipientOf(org, catalog, now, language.French), due)
package notify

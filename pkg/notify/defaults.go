package notify

import "github.com/beautydesk/backoffice/pkg/trigger"

// DefaultTemplates returns the built-in message for every trigger.
func DefaultTemplates() map[trigger.Key]Template {
	return map[trigger.Key]Template{
		trigger.OnboardingDay1: {
			Channel: ChannelEmail,
			Subject: "Welcome to BeautyDesk, {{.Name}}",
			Body: `<p>Hello {{.Name}},</p>
<p>Your institute is ready. Start by adding your services and opening your online booking page.</p>
<p><a href="{{.DashboardURL}}">Go to my dashboard</a></p>`,
		},
		trigger.OnboardingDay7: {
			Channel: ChannelEmail,
			Subject: "One week in: fill your agenda",
			Body: `<p>Hello {{.Name}},</p>
<p>Institutes that import their client list in the first weeks get twice as many online bookings.
Import yours in a few clicks from the CRM.</p>
<p><a href="{{.DashboardURL}}">Import my clients</a></p>`,
		},
		trigger.OnboardingDay15: {
			Channel: ChannelEmail,
			Subject: "Bring your clients back with automatic reminders",
			Body: `<p>Hello {{.Name}},</p>
<p>Appointment reminders cut no-shows. Turn them on in your settings; they are included in the {{.Plan}} plan.</p>
<p><a href="{{.DashboardURL}}">Enable reminders</a></p>`,
		},
		trigger.TrialEndingSoon: {
			Channel: ChannelEmail,
			Subject: "Your trial ends in {{.TrialDaysLeft}} days",
			Body: `<p>Hello {{.Name}},</p>
<p>Your free trial ends in {{.TrialDaysLeft}} days. Keep your agenda, clients and history by subscribing
to the {{.Plan}} plan for {{.PlanPrice}} per month.</p>
<p><a href="{{.DashboardURL}}">Choose my plan</a></p>`,
		},
		trigger.TrialExpired: {
			Channel: ChannelEmail,
			Subject: "Your trial has ended",
			Body: `<p>Hello {{.Name}},</p>
<p>Your trial is over. Your data is kept safe: subscribe at any time to pick up where you left off.</p>
<p><a href="{{.DashboardURL}}">Subscribe</a></p>`,
		},
		trigger.NoLogin7Days: {
			Channel: ChannelSMS,
			Body:    `BeautyDesk: we have not seen you for a week, {{.Name}}. Your agenda is waiting: {{.DashboardURL}}`,
		},
		trigger.SubscriptionActive60: {
			Channel: ChannelChat,
			Subject: "Two months together",
			Body:    `Thank you {{.Name}} for two months on BeautyDesk {{.Plan}}. Tell us what would make your days easier: {{.SupportEmail}}`,
		},
		trigger.CancellationFarewell: {
			Channel: ChannelEmail,
			Subject: "Your subscription has been cancelled",
			Body: `<p>Hello {{.Name}},</p>
<p>Your subscription is cancelled. Your history is preserved and you can come back whenever you want.</p>
<p>Anything we could have done better? Write to <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>`,
		},
	}
}

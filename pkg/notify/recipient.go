package notify

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
)

// Recipient carries the addresses and template values of one organization.
type Recipient struct {
	OrganizationID uuid.UUID
	Name           string
	Email          string
	Phone          string
	ChatWebhookURL string
	Plan           plan.ID
	PlanPrice      string
	TrialDaysLeft  int
}

// RecipientOf builds the recipient of o at now, formatting the plan price for lang.
func RecipientOf(o organization.Organization, cat *plan.Catalog, now time.Time, lang language.Tag) Recipient {
	r := Recipient{
		OrganizationID: o.ID,
		Name:           o.Name,
		Email:          o.ContactEmail,
		Phone:          o.ContactPhone,
		ChatWebhookURL: o.ChatWebhookURL,
		Plan:           o.EffectivePlan(now),
		TrialDaysLeft:  o.TrialDaysLeft(now),
	}
	if def, ok := cat.Lookup(r.Plan); ok {
		r.PlanPrice = def.Price.Format(lang)
	}
	return r
}

func (r Recipient) address(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return r.Email
	case ChannelSMS:
		return r.Phone
	case ChannelChat:
		return r.ChatWebhookURL
	}
	return ""
}

package notify

import (
	"context"

	"github.com/beautydesk/backoffice/pkg/email"
	"github.com/beautydesk/backoffice/pkg/sms"
)

// Message is a rendered notification addressed to one destination.
type Message struct {
	Channel        Channel
	To             string
	Subject        string
	HTML           string
	Text           string
	Tag            string
	OrganizationID string
}

// Transport delivers messages over one channel.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) error

func (f TransportFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// EmailTransport delivers through an email sender.
func EmailTransport(s email.Sender) Transport {
	return TransportFunc(func(ctx context.Context, msg Message) error {
		return s.Send(ctx, email.Message{
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Tag:     msg.Tag,
		})
	})
}

// SMSTransport delivers the plain-text body as a text message.
func SMSTransport(s sms.Sender) Transport {
	return TransportFunc(func(ctx context.Context, msg Message) error {
		return s.Send(ctx, msg.To, msg.Text)
	})
}

// ChatPoster posts a JSON payload to a webhook endpoint. *webhook.Sender implements it.
type ChatPoster interface {
	Send(ctx context.Context, endpoint string, payload any) error
}

// ChatPayload is the JSON body posted to chat webhooks.
type ChatPayload struct {
	Title          string `json:"title,omitempty"`
	Text           string `json:"text"`
	Trigger        string `json:"trigger"`
	OrganizationID string `json:"organization_id"`
}

// ChatTransport posts messages to the organization's chat webhook.
func ChatTransport(p ChatPoster) Transport {
	return TransportFunc(func(ctx context.Context, msg Message) error {
		return p.Send(ctx, msg.To, ChatPayload{
			Title:          msg.Subject,
			Text:           msg.Text,
			Trigger:        msg.Tag,
			OrganizationID: msg.OrganizationID,
		})
	})
}

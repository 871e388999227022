// Package email delivers transactional email.
//
// Sender has two implementations: Postmark for production and DevSender,
// which writes every message to a local directory for inspection. NewSender
// picks one from Config.
//
//	sender, err := email.NewSender(cfg)
//	err = sender.Send(ctx, email.Message{
//		To:      "owner@salon.example",
//		Subject: "Your trial ends in 5 days",
//		HTML:    body,
//		Tag:     "TRIAL_ENDING_SOON",
//	})
package email

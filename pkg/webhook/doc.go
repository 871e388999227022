// Package webhook delivers signed JSON payloads to chat endpoints configured
// by organizations.
//
// Every request carries an HMAC-SHA256 signature over "<timestamp>.<body>" in
// X-Beautydesk-Signature, the unix timestamp in X-Beautydesk-Timestamp and a
// unique delivery id. Receivers verify with ParseSignature and Verify.
//
// Transient failures (network errors, 5xx, 408, 425, 429) are retried with
// backoff; other 4xx responses fail immediately. WithBreaker stops hammering
// a host that keeps failing.
//
//	sender := webhook.NewSender(secret, webhook.WithBreaker(5, time.Minute))
//	err := sender.Send(ctx, org.ChatWebhookURL, payload)
package webhook

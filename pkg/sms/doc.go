// Package sms sends transactional text messages through Amazon SNS.
//
// Phone numbers are normalized to E.164 before publishing. Tests inject a
// Publisher with WithPublisher instead of talking to AWS.
package sms

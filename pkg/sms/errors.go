package sms

import "errors"

var (
	ErrInvalidConfig  = errors.New("sms: invalid config")
	ErrInvalidMessage = errors.New("sms: invalid message")
	ErrFailedToSend   = errors.New("sms: failed to send")
)

package trigger

import "errors"

var (
	ErrUnknownKey   = errors.New("trigger: unknown trigger key")
	ErrAlreadyFired = errors.New("trigger: already fired")
	ErrStoreFailed  = errors.New("trigger: firing store failed")
)

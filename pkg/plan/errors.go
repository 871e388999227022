package plan

import "errors"

var (
	ErrUnknownPlan    = errors.New("plan: unknown plan")
	ErrInvalidCatalog = errors.New("plan: invalid catalog")
	ErrFailedToLoad   = errors.New("plan: failed to load catalog")
)

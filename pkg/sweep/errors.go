package sweep

import "errors"

var (
	ErrDowngradesFailed = errors.New("sweep: applying due downgrades failed")
	ErrListFailed       = errors.New("sweep: listing organizations failed")
	ErrEvaluateFailed   = errors.New("sweep: trigger evaluation failed")
	ErrInvalidSchedule  = errors.New("sweep: invalid schedule")
)

package pgstore

import "errors"

var (
	ErrNilPool     = errors.New("pgstore: pool cannot be nil")
	ErrQueryFailed = errors.New("pgstore: query failed")
	ErrTxFailed    = errors.New("pgstore: transaction failed")
)

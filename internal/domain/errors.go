package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrNoQuorum              = errors.New("no agent produced a decision")
	ErrAlreadyResolved       = errors.New("prediction already resolved")
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	ErrInvalidAllocation     = errors.New("invalid agent allocation")
	ErrRateLimited           = errors.New("rate limited")
	ErrLockHeld              = errors.New("lock already held")
)

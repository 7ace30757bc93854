package rate

import "errors"

var (
	// ErrRateLimited is returned when a window's budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when the counter store cannot be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

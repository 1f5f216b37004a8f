package rate

import "errors"

var (
	// ErrRateLimited is returned when a client's bucket has no tokens left.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures. Callers on the
	// admission path treat it as a reject (fail closed).
	ErrRedisUnavailable = errors.New("redis unavailable")
)

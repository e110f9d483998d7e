package loadbalancer

import "errors"

var (
	// ErrRateLimitExceeded means the client used up its window; maps to 429.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrNoHealthyBackend means every backend is down; maps to 502.
	ErrNoHealthyBackend = errors.New("no healthy backend available")

	// ErrInvalidConfiguration wraps every construction failure.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrAlreadyStarted = errors.New("background tasks already started")
)

package common

import (
	"time"

	"golang.org/x/time/rate"
)

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int
	Duration time.Duration
}

// Translate the restriction into a token bucket that refills one request
// every Duration/Requests and never holds more than Requests tokens
func (rest Restriction) Limiter() *rate.Limiter {
	if rest.Requests <= 0 || rest.Duration <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(rest.Duration/time.Duration(rest.Requests)), rest.Requests)
}

package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Cooldown applied after the upstream answers with a rate limit
const RateLimitCooldown = time.Minute

type RateLimiter struct {
	mu              sync.Mutex
	limiters        []*rate.Limiter        // One per restriction, all need to allow a request
	cooldown        Stopwatch              // Running while we are paused after a 429
	pendingRequests map[uuid.UUID]struct{} // Requests currently waiting for permission
	clock           clock.Clock
}

func NewRateLimiter(restrictions []Restriction, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	rl := &RateLimiter{
		cooldown:        NewStopwatch(RateLimitCooldown, clk),
		pendingRequests: map[uuid.UUID]struct{}{},
		clock:           clk,
	}
	for _, restriction := range restrictions {
		rl.limiters = append(rl.limiters, restriction.Limiter())
	}
	return rl
}

// Block until a new request is allowed by every restriction and by the
// cooldown, or until the context is done
func (rl *RateLimiter) Wait(ctx context.Context) error {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	rl.mu.Lock()
	rl.pendingRequests[thisuuid] = struct{}{}
	wait := rl.cooldown.Remaining()
	rl.mu.Unlock()
	defer func() {
		rl.mu.Lock()
		delete(rl.pendingRequests, thisuuid)
		rl.mu.Unlock()
	}()

	if wait > 0 {
		log.Warn().Msg(fmt.Sprintf("Request %s delayed %.0f seconds by rate limit cooldown", thisuuid, wait.Seconds()))
		timer := rl.clock.Timer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	for _, limiter := range rl.limiters {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	log.Debug().Msg(fmt.Sprintf("Allowing request %s", thisuuid))
	return nil
}

// Called when the upstream tells us we went over its limits
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cooldown.Start()
	log.Warn().Msg(fmt.Sprintf("Rate limit received, pausing requests for %s", RateLimitCooldown))
}

// Number of requests currently waiting for permission
func (rl *RateLimiter) Pending() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.pendingRequests)
}

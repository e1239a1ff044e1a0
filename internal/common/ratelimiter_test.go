package common

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestrictionLimiter(t *testing.T) {
	limiter := Restriction{Requests: 3, Duration: time.Hour}.Limiter()
	assert.Equal(t, 3, limiter.Burst())

	unlimited := Restriction{}.Limiter()
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow())
	}
}

func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 2, Duration: time.Hour}}, clock.NewMock())

	require.NoError(t, rl.Wait(context.Background()))
	require.NoError(t, rl.Wait(context.Background()))

	// The third request would need to wait half an hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx))
	assert.Equal(t, 0, rl.Pending())
}

func TestRateLimiterCooldown(t *testing.T) {
	rl := NewRateLimiter(nil, clock.NewMock())
	require.NoError(t, rl.Wait(context.Background()))

	rl.ReceivedRateLimit()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

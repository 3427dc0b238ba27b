package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerKeyBudget(t *testing.T) {
	l := NewRateLimiter(1, 2, nil)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys do not share a bucket")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiter_Prune(t *testing.T) {
	l := NewRateLimiter(1, 1, nil)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("stale")
	now = now.Add(defaultVisitorTTL / 2)
	l.Allow("fresh")
	now = now.Add(defaultVisitorTTL/2 + time.Second)

	assert.Equal(t, 1, l.Prune())
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "fresh")
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(0, 0, nil)
	assert.InDelta(t, float64(defaultRatePerSecond), float64(l.limit), 0.0001)
	assert.Equal(t, 1, l.burst)
}

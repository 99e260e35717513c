package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterBlocksOverLimit(t *testing.T) {
	limiter := NewIPRateLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiterTracksIPsIndependently(t *testing.T) {
	limiter := NewIPRateLimiter(1)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

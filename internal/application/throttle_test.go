package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottlePolicyDelay(t *testing.T) {
	policy := ThrottlePolicy{}

	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, time.Second, policy.Delay(0))
	assert.Equal(t, time.Second, policy.Delay(-3))
}

func TestThrottlePolicyAllow(t *testing.T) {
	bounded := ThrottlePolicy{MaxRetries: 2}
	assert.True(t, bounded.Allow(0))
	assert.True(t, bounded.Allow(1))
	assert.False(t, bounded.Allow(2))

	unlimited := ThrottlePolicy{MaxRetries: -1}
	assert.True(t, unlimited.Allow(1000))
}

func TestBenignErrorCodes(t *testing.T) {
	assert.True(t, benignErrorCode(0))
	assert.True(t, benignErrorCode(1))
	assert.False(t, benignErrorCode(errorCodeThrottle))
	assert.False(t, benignErrorCode(1601))
}

package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusIdle.CanTransitionTo(StatusSubmitting))
	assert.False(t, StatusIdle.CanTransitionTo(StatusSucceeded))

	assert.True(t, StatusSubmitting.CanTransitionTo(StatusSucceeded))
	assert.True(t, StatusSubmitting.CanTransitionTo(StatusFailed))
	assert.False(t, StatusSubmitting.CanTransitionTo(StatusSubmitting))
	assert.False(t, StatusSubmitting.CanTransitionTo(StatusIdle))

	assert.True(t, StatusFailed.CanTransitionTo(StatusSubmitting))
	assert.True(t, StatusSucceeded.CanTransitionTo(StatusSubmitting))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSucceeded))

	assert.False(t, Status("BOGUS").CanTransitionTo(StatusSubmitting))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusIdle.IsTerminal())
	assert.False(t, StatusSubmitting.IsTerminal())
}

func TestShippingPolicy(t *testing.T) {
	p := ShippingPolicy{FlatFee: 350, FreeThreshold: 5000}
	assert.Equal(t, int64(0), p.Cost(0))
	assert.Equal(t, int64(350), p.Cost(4999))
	assert.Equal(t, int64(0), p.Cost(5000))

	flat := ShippingPolicy{FlatFee: 200}
	assert.Equal(t, int64(200), flat.Cost(1_000_000))
}

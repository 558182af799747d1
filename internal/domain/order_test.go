package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTerminality(t *testing.T) {
	assert.False(t, Active.Terminal())
	for _, s := range []OrderStatus{Fulfilled, Canceled, Expired} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestCanTransition(t *testing.T) {
	active := &Order{Status: Active}
	assert.True(t, active.CanTransition(Fulfilled))
	assert.True(t, active.CanTransition(Canceled))
	assert.True(t, active.CanTransition(Expired))
	assert.False(t, active.CanTransition(Active))

	for _, s := range []OrderStatus{Fulfilled, Canceled, Expired} {
		o := &Order{Status: s}
		for _, to := range []OrderStatus{Active, Fulfilled, Canceled, Expired} {
			assert.False(t, o.CanTransition(to), "%s -> %s", s, to)
		}
	}
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventSetIsIdempotent(t *testing.T) {
	e := newEvent()
	assert.False(t, e.isSet())

	e.set()
	e.set()

	assert.True(t, e.isSet())
	select {
	case <-e.wait():
	default:
		t.Fatal("wait channel not closed after set")
	}
}

func TestGateRaiseClearCycle(t *testing.T) {
	g := newGate()
	assert.False(t, g.isSet())

	g.raise()
	assert.True(t, g.isSet())
	ch, ready := g.state()
	assert.True(t, ready)
	select {
	case <-ch:
	default:
		t.Fatal("state channel not closed while raised")
	}

	g.clear()
	assert.False(t, g.isSet())
	ch, ready = g.state()
	assert.False(t, ready)
	select {
	case <-ch:
		t.Fatal("state channel closed while cleared")
	default:
	}

	// Raising again closes the fresh channel.
	g.raise()
	select {
	case <-ch:
	default:
		t.Fatal("state channel not closed after re-raise")
	}
}

func TestGateClearWhileClearIsNoop(t *testing.T) {
	g := newGate()
	ch, _ := g.state()
	g.clear()
	ch2, _ := g.state()
	assert.Equal(t, ch, ch2)
}

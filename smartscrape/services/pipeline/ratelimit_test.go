package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock drives a Limiter deterministically.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cooldown time.Duration) (*Limiter, *testClock) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cooldown)
	l.now = clock.now
	return l, clock
}

func TestLimiterFirstCallAllowed(t *testing.T) {
	l, _ := newTestLimiter(2 * time.Second)

	ok, wait := l.Allow("gaming laptop")
	assert.True(t, ok)
	assert.Zero(t, wait)
}

func TestLimiterRejectsInsideCooldown(t *testing.T) {
	l, clock := newTestLimiter(2 * time.Second)

	l.Allow("gaming laptop")
	clock.advance(500 * time.Millisecond)

	ok, wait := l.Allow("gaming laptop")
	assert.False(t, ok)
	assert.Equal(t, 1500*time.Millisecond, wait)
}

func TestLimiterHammeringKeepsRejecting(t *testing.T) {
	l, clock := newTestLimiter(2 * time.Second)

	ok, _ := l.Allow("gaming laptop")
	require.True(t, ok)

	// Each retry restamps the key, so retrying every 1.5s never gets in
	// even though 6s pass in total.
	for i := 0; i < 4; i++ {
		clock.advance(1500 * time.Millisecond)
		ok, _ := l.Allow("gaming laptop")
		assert.False(t, ok, "attempt %d", i)
	}

	clock.advance(2 * time.Second)
	ok, _ = l.Allow("gaming laptop")
	assert.True(t, ok)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(2 * time.Second)

	ok, _ := l.Allow("gaming laptop")
	require.True(t, ok)

	ok, _ = l.Allow("flights to mumbai")
	assert.True(t, ok)
}

func TestLimiterZeroCooldownNeverRejects(t *testing.T) {
	l, _ := newTestLimiter(0)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("q")
		assert.True(t, ok)
	}
}

func TestLimiterPrunesStaleKeys(t *testing.T) {
	l, clock := newTestLimiter(2 * time.Second)

	for i := 0; i < pruneThreshold+100; i++ {
		l.Allow(fmt.Sprintf("query-%d", i))
	}
	require.Greater(t, l.Len(), pruneThreshold)

	clock.advance(5 * time.Second)
	l.Allow("fresh query")

	assert.Equal(t, 1, l.Len())
}

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClockNowAndSet(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	later := start.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestMockClockAdvanceAndSince(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
	assert.Equal(t, 90*time.Second, clock.Since(start))
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	ticker := clock.NewTicker(10 * time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	clock.Advance(10 * time.Second)

	select {
	case tick := <-ticker.C():
		assert.Equal(t, clock.Now(), tick)
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire after advancing past its interval")
	}
}

func TestMockTickerStop(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClock(t *testing.T) {
	t.Parallel()

	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	require.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before), time.Duration(0))

	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
}

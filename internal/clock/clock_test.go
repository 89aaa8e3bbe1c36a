package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_After(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	ch := clk.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	clk.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired too early")
	default:
	}

	clk.Advance(5 * time.Second)
	select {
	case fired := <-ch:
		assert.Equal(t, start.Add(10*time.Second), fired)
	default:
		t.Fatal("After did not fire")
	}

	assert.Equal(t, start.Add(10*time.Second), clk.Now())
}

func TestMockClock_Ticker(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	ticker := clk.NewTicker(time.Second)
	defer ticker.Stop()

	clk.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire")
	}

	// Two periods with an undelivered tick: one tick is dropped, as with
	// time.Ticker.
	clk.Advance(2 * time.Second)
	<-ticker.C()
	select {
	case <-ticker.C():
		t.Fatal("dropped tick was delivered")
	default:
	}
}

func TestMockClock_TickerStop(t *testing.T) {
	clk := NewMockClock(time.Now())

	ticker := clk.NewTicker(time.Second)
	ticker.Stop()

	clk.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockClock_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	late := clk.After(3 * time.Second)
	early := clk.After(time.Second)

	clk.Advance(5 * time.Second)

	earlyFired := <-early
	lateFired := <-late
	assert.True(t, earlyFired.Before(lateFired))
}

func TestRealClock(t *testing.T) {
	clk := NewRealClock()

	before := time.Now()
	now := clk.Now()
	assert.False(t, now.Before(before))

	select {
	case <-clk.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After never fired")
	}

	ticker := clk.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
}

package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/internal/clock"
)

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	ch := c.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("should not fire before advancing")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case got := <-ch:
		require.Equal(t, start.Add(5*time.Second), got)
	case <-time.After(time.Second):
		t.Fatal("expected the waiter to fire")
	}
}

func TestFake_AfterZeroOrNegativeFiresImmediately(t *testing.T) {
	c := clock.NewFake(time.Now())
	ch := c.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("zero-duration After should fire immediately")
	}
}

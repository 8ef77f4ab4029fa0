package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveWindowState(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	auction := Auction{AuctionID: "a1", StartAt: start, EndAt: end}

	tests := []struct {
		name string
		now  time.Time
		want AuctionState
	}{
		{name: "before_start", now: start.Add(-time.Nanosecond), want: StateScheduled},
		{name: "at_start", now: start, want: StateOpen},
		{name: "mid_window", now: start.Add(30 * time.Minute), want: StateOpen},
		{name: "just_before_end", now: end.Add(-time.Nanosecond), want: StateOpen},
		{name: "at_end", now: end, want: StateClosed},
		{name: "after_end", now: end.Add(time.Minute), want: StateClosed},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, DeriveWindowState(auction, tc.now))
		})
	}
}

func TestEffectiveState(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	auction := Auction{StartAt: start, EndAt: start.Add(time.Hour), State: StateScheduled}

	// stored non-terminal states never override the clock
	require.Equal(t, StateOpen, EffectiveState(auction, start.Add(time.Minute)))

	auction.State = ""
	require.Equal(t, StateClosed, EffectiveState(auction, start.Add(time.Hour)))
	view := NewAuctionView(auction, start.Add(-time.Second))
	require.Equal(t, StateScheduled, view.EffectiveState)
	require.Empty(t, view.State)

	auction.State = StateResolved
	require.Equal(t, StateResolved, EffectiveState(auction, start.Add(time.Minute)))
	require.True(t, StateWithdrawn.IsTerminal())
	require.False(t, StateClosed.IsTerminal())
}

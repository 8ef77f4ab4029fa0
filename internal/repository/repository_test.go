package repository

import (
	"book-auction/internal/biddingerrors"
	model "book-auction/internal/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// Helper to create a new Auction
func newAuction(auctionID string, floor int64, startOffset time.Duration) model.Auction {
	return model.Auction{
		AuctionID:   auctionID,
		ItemID:      "book-" + auctionID,
		FloorAmount: floor,
		StartAt:     baseTime.Add(startOffset),
		EndAt:       baseTime.Add(startOffset + time.Hour),
		CreatedAt:   baseTime,
	}
}

// Helper to create a new Bid
func newBid(bidID, auctionID, bidderID string, amount, seq int64) model.Bid {
	return model.Bid{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  baseTime.Add(time.Duration(seq) * time.Second),
		Sequence:  seq,
		Status:    model.BidActive,
	}
}

// Test CreateAuction and GetAuction
func TestMemoryRepo_CreateAndGetAuction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	a1 := newAuction("a1", 500, 0)
	require.NoError(t, repo.CreateAuction(ctx, a1))

	tests := []struct {
		name      string
		auctionID string
		want      model.Auction
		wantError error
	}{
		{name: "existing_auction", auctionID: "a1", want: a1},
		{name: "unknown_auction", auctionID: "missing", wantError: biddingerrors.ErrAuctionNotFound},
		{name: "empty_auctionID", auctionID: "", wantError: biddingerrors.ErrAuctionNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := repo.GetAuction(ctx, tc.auctionID)
			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("duplicate_auction", func(t *testing.T) {
		t.Parallel()
		err := repo.CreateAuction(ctx, a1)
		require.ErrorIs(t, err, biddingerrors.ErrAlreadyExists)
	})
}

// Test ListAuctions
func TestMemoryRepo_ListAuctions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()

	empty, err := repo.ListAuctions(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)

	late := newAuction("late", 10, 2*time.Hour)
	early := newAuction("early", 10, 0)
	mid := newAuction("mid", 10, time.Hour)
	for _, a := range []model.Auction{late, early, mid} {
		require.NoError(t, repo.CreateAuction(ctx, a))
	}

	auctions, err := repo.ListAuctions(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.Auction{early, mid, late}, auctions)
}

// Test AppendBid and GetBidsByAuction
func TestMemoryRepo_AppendBid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", 100, 0)))
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a2", 100, 0)))

	tests := []struct {
		name      string
		bid       model.Bid
		wantError bool
	}{
		{name: "valid_bid", bid: newBid("bid1", "a1", "user1", 150, 1), wantError: false},
		{name: "auction_not_found", bid: newBid("bid2", "missing", "user1", 150, 1), wantError: true},
		{name: "empty_auctionID", bid: newBid("bid3", "", "user1", 150, 1), wantError: true},
		{name: "other_auction", bid: newBid("bid4", "a2", "user2", 150, 1), wantError: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := repo.AppendBid(ctx, tc.bid)
			if tc.wantError {
				require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
				return
			}
			require.NoError(t, err)
			bids, err := repo.GetBidsByAuction(ctx, tc.bid.AuctionID)
			require.NoError(t, err)
			require.Contains(t, bids, tc.bid)
		})
	}

	t.Run("ledgers_are_isolated", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("x", 100, 0)))
		require.NoError(t, repo.CreateAuction(ctx, newAuction("y", 100, 0)))
		require.NoError(t, repo.AppendBid(ctx, newBid("bx", "x", "user1", 150, 1)))

		bids, err := repo.GetBidsByAuction(ctx, "y")
		require.NoError(t, err)
		require.Empty(t, bids)
	})

	t.Run("returned_ledger_is_a_copy", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("c", 100, 0)))
		require.NoError(t, repo.AppendBid(ctx, newBid("bc", "c", "user1", 150, 1)))

		bids, err := repo.GetBidsByAuction(ctx, "c")
		require.NoError(t, err)
		bids[0].Amount = 1

		again, err := repo.GetBidsByAuction(ctx, "c")
		require.NoError(t, err)
		require.Equal(t, int64(150), again[0].Amount)
	})

	t.Run("concurrent_appends", func(t *testing.T) {
		t.Parallel()

		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("hot", 100, 0)))

		var wg sync.WaitGroup
		concurrentCount := 50
		for i := 0; i < concurrentCount; i++ {
			wg.Add(1)
			i := i
			go func() {
				defer wg.Done()
				b := newBid(fmt.Sprintf("bid-%d", i), "hot", fmt.Sprintf("user-%d", i), int64(200+i), int64(i+1))
				require.NoError(t, repo.AppendBid(ctx, b))
			}()
		}
		wg.Wait()

		bids, err := repo.GetBidsByAuction(ctx, "hot")
		require.NoError(t, err)
		require.Len(t, bids, concurrentCount)
	})
}

// Test RecordWithdrawal
func TestMemoryRepo_RecordWithdrawal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := baseTime.Add(2 * time.Hour)

	seed := func(t *testing.T) *MemoryRepo {
		t.Helper()
		repo := NewMemoryRepo()
		require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", 100, 0)))
		require.NoError(t, repo.AppendBid(ctx, newBid("bid1", "a1", "user1", 150, 1)))
		require.NoError(t, repo.AppendBid(ctx, newBid("bid2", "a1", "user2", 160, 2)))
		require.NoError(t, repo.AppendBid(ctx, newBid("bid3", "a1", "user2", 170, 3)))
		winner := "bid3"
		require.NoError(t, repo.UpdateAuctionResolution(ctx, "a1", model.StateResolved, &winner, baseTime.Add(time.Hour)))
		return repo
	}

	t.Run("applies_all_changes", func(t *testing.T) {
		t.Parallel()

		repo := seed(t)
		next := "bid1"
		require.NoError(t, repo.RecordWithdrawal(ctx, model.WithdrawalRecord{
			AuctionID:        "a1",
			WithdrawnBidID:   "bid3",
			SupersededBidIDs: []string{"bid2"},
			NewWinnerBidID:   &next,
			At:               at,
		}))

		bids, err := repo.GetBidsByAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, model.BidActive, bids[0].Status)
		require.Equal(t, model.BidSuperseded, bids[1].Status)
		require.Equal(t, model.BidWithdrawn, bids[2].Status)

		got, err := repo.GetAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, model.StateResolved, got.State)
		require.Equal(t, "bid1", *got.WinnerBidID)
		require.Equal(t, at, *got.ResolvedAt)
	})

	t.Run("unknown_bid_changes_nothing", func(t *testing.T) {
		t.Parallel()

		repo := seed(t)
		before, err := repo.GetBidsByAuction(ctx, "a1")
		require.NoError(t, err)

		err = repo.RecordWithdrawal(ctx, model.WithdrawalRecord{
			AuctionID:        "a1",
			WithdrawnBidID:   "bid3",
			SupersededBidIDs: []string{"bid2", "nope"},
			At:               at,
		})
		require.ErrorIs(t, err, biddingerrors.ErrBidNotFound)

		after, err := repo.GetBidsByAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, before, after)
		got, err := repo.GetAuction(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, "bid3", *got.WinnerBidID)
	})

	t.Run("unknown_auction", func(t *testing.T) {
		t.Parallel()

		err := NewMemoryRepo().RecordWithdrawal(ctx, model.WithdrawalRecord{AuctionID: "missing", WithdrawnBidID: "bid1", At: at})
		require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
	})
}

// Test UpdateAuctionResolution
func TestMemoryRepo_UpdateAuctionResolution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(ctx, newAuction("a1", 100, 0)))

	winner := "bid1"
	resolvedAt := baseTime.Add(2 * time.Hour)
	require.NoError(t, repo.UpdateAuctionResolution(ctx, "a1", model.StateResolved, &winner, resolvedAt))

	// mutating the caller's pointer must not leak into the store
	winner = "other"

	got, err := repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, model.StateResolved, got.State)
	require.NotNil(t, got.WinnerBidID)
	require.Equal(t, "bid1", *got.WinnerBidID)
	require.Equal(t, resolvedAt, *got.ResolvedAt)

	require.NoError(t, repo.UpdateAuctionResolution(ctx, "a1", model.StateResolved, nil, resolvedAt))
	got, err = repo.GetAuction(ctx, "a1")
	require.NoError(t, err)
	require.Nil(t, got.WinnerBidID)

	err = repo.UpdateAuctionResolution(ctx, "missing", model.StateResolved, nil, resolvedAt)
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionNotFound))
}

// Test GetAuctionsByBidder
func TestMemoryRepo_GetAuctionsByBidder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepo()
	a1 := newAuction("a1", 50, 0)
	a2 := newAuction("a2", 75, 0)
	a3 := newAuction("a3", 100, 0)
	for _, a := range []model.Auction{a1, a2, a3} {
		require.NoError(t, repo.CreateAuction(ctx, a))
	}

	require.NoError(t, repo.AppendBid(ctx, newBid("b1", "a2", "user1", 100, 1)))
	require.NoError(t, repo.AppendBid(ctx, newBid("b2", "a1", "user1", 100, 1)))
	require.NoError(t, repo.AppendBid(ctx, newBid("b3", "a2", "user1", 120, 2)))
	require.NoError(t, repo.AppendBid(ctx, newBid("b4", "a3", "user2", 120, 1)))

	tests := []struct {
		name         string
		bidderID     string
		wantAuctions []model.Auction
	}{
		{name: "bidder_with_multiple_auctions", bidderID: "user1", wantAuctions: []model.Auction{a2, a1}},
		{name: "bidder_with_single_auction", bidderID: "user2", wantAuctions: []model.Auction{a3}},
		{name: "bidder_with_no_bids", bidderID: "userX", wantAuctions: []model.Auction{}},
		{name: "empty_bidderID", bidderID: "", wantAuctions: []model.Auction{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			auctions, err := repo.GetAuctionsByBidder(ctx, tc.bidderID)
			require.NoError(t, err)
			require.Equal(t, tc.wantAuctions, auctions)
		})
	}
}

package bidding

import (
	"book-auction/internal/models"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Read projections. None of these take the auction lock; they see the last
// committed state of the ledger.

// CurrentHighest returns the highest active amount, or the floor when there are no active bids
func (s *BiddingService) CurrentHighest(ctx context.Context, auctionID string) (int64, error) {
	auction, bids, err := s.snapshot(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	return currentHighest(auction, bids), nil
}

// MinimumNextBid returns the smallest amount that would currently be admitted
func (s *BiddingService) MinimumNextBid(ctx context.Context, auctionID string) (int64, error) {
	highest, err := s.CurrentHighest(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// TimeRemaining returns the time left before the window closes, zero once it has
func (s *BiddingService) TimeRemaining(ctx context.Context, auctionID string) (models.TimeRemaining, error) {
	auction, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return models.TimeRemaining{}, err
	}

	remaining := auction.EndAt.Sub(s.clock.Now())
	if remaining <= 0 {
		return models.TimeRemaining{Remaining: 0, Ended: true}, nil
	}
	return models.TimeRemaining{Remaining: remaining, Ended: false}, nil
}

// Statistics summarizes the active bids of an auction. The average is
// rounded to two decimal places.
func (s *BiddingService) Statistics(ctx context.Context, auctionID string) (models.Statistics, error) {
	_, bids, err := s.snapshot(ctx, auctionID)
	if err != nil {
		return models.Statistics{}, err
	}

	bidders := make(map[string]struct{})
	total := decimal.Zero
	count := 0
	for _, b := range bids {
		if b.Status != models.BidActive {
			continue
		}
		count++
		bidders[b.BidderID] = struct{}{}
		total = total.Add(decimal.NewFromInt(b.Amount))
	}

	stats := models.Statistics{
		BidCount:          count,
		UniqueBidderCount: len(bidders),
		AverageAmount:     decimal.Zero,
	}
	if count > 0 {
		stats.AverageAmount = total.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return stats, nil
}

func (s *BiddingService) snapshot(ctx context.Context, auctionID string) (models.Auction, []models.Bid, error) {
	auction, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, nil, err
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, nil, fmt.Errorf("service: failed to read ledger of auction %s: %w", auctionID, err)
	}
	return auction, bids, nil
}

package bidding

import (
	"book-auction/internal/biddingerrors"
	"book-auction/internal/events"
	"book-auction/internal/models"
	"book-auction/utils"
	"context"
	"fmt"
	"time"
)

// Resolve determines the winner of a closed auction. It is idempotent: once
// an auction is resolved the recorded winner is returned without re-evaluating
// the ledger, and no new resolution event is published.
func (s *BiddingService) Resolve(ctx context.Context, auctionID string) (models.Resolution, error) {
	res, fresh, err := s.resolve(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, err
	}

	if fresh {
		utils.Info("auction resolved", resolutionFields(res))
		s.publishResolution(ctx, res, false)
	}
	return res, nil
}

func (s *BiddingService) resolve(ctx context.Context, auctionID string) (models.Resolution, bool, error) {
	unlock := s.locks.lock(auctionID)
	defer unlock()

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, false, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, false, fmt.Errorf("service: failed to read ledger of auction %s: %w", auctionID, err)
	}

	if auction.State.IsTerminal() {
		return recordedResolution(auction, bids), false, nil
	}

	now := s.clock.Now()
	if models.DeriveWindowState(auction, now) != models.StateClosed {
		return models.Resolution{}, false, fmt.Errorf("service: %w - bidding ends at %s",
			biddingerrors.ErrAuctionNotClosed, auction.EndAt.Format(time.RFC3339))
	}

	winner := selectWinner(auction, bids, "")
	var winnerID *string
	if winner != nil {
		winnerID = &winner.BidID
	}

	if err := s.repo.UpdateAuctionResolution(ctx, auctionID, models.StateResolved, winnerID, now); err != nil {
		return models.Resolution{}, false, fmt.Errorf("service: failed to record resolution of auction %s: %w", auctionID, err)
	}

	return models.Resolution{
		AuctionID:   auctionID,
		State:       models.StateResolved,
		WinnerBidID: winnerID,
		WinningBid:  winner,
		ResolvedAt:  now,
	}, true, nil
}

// Withdraw lets the current winner of a resolved auction back out before
// settlement. The winning bid is marked withdrawn, the bidder's remaining
// active bids are superseded, and the next eligible bid from a different
// bidder is promoted. The returned resolution carries the new winner, or
// none when nobody else is eligible.
func (s *BiddingService) Withdraw(ctx context.Context, auctionID, bidderID string) (models.Resolution, error) {
	if bidderID == "" {
		return models.Resolution{}, fmt.Errorf("service: %w - missing bidderID", biddingerrors.ErrInvalidBidder)
	}

	res, withdrawn, err := s.withdraw(ctx, auctionID, bidderID)
	if err != nil {
		return models.Resolution{}, err
	}

	utils.Info("winner withdrew from auction", map[string]any{
		"auction_id":       auctionID,
		"bidder_id":        bidderID,
		"withdrawn_bid_id": withdrawn.BidID,
		"withdrawn_amount": withdrawn.Amount,
		"promoted_bid_id":  derefOrEmpty(res.WinnerBidID),
	})

	event := events.WithdrawalEvent{
		EventID:     utils.GenerateID(),
		AuctionID:   auctionID,
		BidderID:    bidderID,
		BidID:       withdrawn.BidID,
		PenaltyHint: s.withdrawalPenalty,
		WithdrawnAt: res.ResolvedAt,
	}
	if err := s.publisher.PublishWithdrawal(ctx, event); err != nil {
		utils.Error("failed to publish withdrawal event", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
			"error":      err.Error(),
		})
	}
	s.publishResolution(ctx, res, true)

	return res, nil
}

func (s *BiddingService) withdraw(ctx context.Context, auctionID, bidderID string) (models.Resolution, models.Bid, error) {
	unlock := s.locks.lock(auctionID)
	defer unlock()

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.State != models.StateResolved {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: %w - auction %s", biddingerrors.ErrNotResolved, auctionID)
	}
	if auction.WinnerBidID == nil {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: %w - auction %s has no winner", biddingerrors.ErrNotWinner, auctionID)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: failed to read ledger of auction %s: %w", auctionID, err)
	}

	idx := indexOfBid(bids, *auction.WinnerBidID)
	if idx < 0 {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: %w - winning bid %s of auction %s",
			biddingerrors.ErrBidNotFound, *auction.WinnerBidID, auctionID)
	}
	winning := bids[idx]
	if winning.BidderID != bidderID {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: %w - bidder %s", biddingerrors.ErrNotWinner, bidderID)
	}

	// the settlement lookup is the one collaborator read held under the lock,
	// so MarkSettled cannot slip in between the check and the withdrawal
	settled, err := s.settlement.IsSettled(ctx, auctionID)
	if err != nil {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: failed to check settlement of auction %s: %w", auctionID, err)
	}
	if settled {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: %w - auction %s", biddingerrors.ErrAlreadySettled, auctionID)
	}

	now := s.clock.Now()

	// ledger changes and promotion commit together; the withdrawn state is never stored
	bids[idx].Status = models.BidWithdrawn
	var superseded []string
	for i := range bids {
		if bids[i].BidderID == bidderID && bids[i].Status == models.BidActive {
			bids[i].Status = models.BidSuperseded
			superseded = append(superseded, bids[i].BidID)
		}
	}

	next := selectWinner(auction, bids, bidderID)
	var nextID *string
	if next != nil {
		nextID = &next.BidID
	}

	err = s.repo.RecordWithdrawal(ctx, models.WithdrawalRecord{
		AuctionID:        auctionID,
		WithdrawnBidID:   winning.BidID,
		SupersededBidIDs: superseded,
		NewWinnerBidID:   nextID,
		At:               now,
	})
	if err != nil {
		return models.Resolution{}, models.Bid{}, fmt.Errorf("service: failed to record withdrawal on auction %s: %w", auctionID, err)
	}

	return models.Resolution{
		AuctionID:   auctionID,
		State:       models.StateResolved,
		WinnerBidID: nextID,
		WinningBid:  next,
		ResolvedAt:  now,
	}, winning, nil
}

// MarkSettled records that payment for the auction's current winner has
// completed. After this the winner can no longer withdraw.
func (s *BiddingService) MarkSettled(ctx context.Context, auctionID string) error {
	unlock := s.locks.lock(auctionID)
	defer unlock()

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.State != models.StateResolved || auction.WinnerBidID == nil {
		return fmt.Errorf("service: %w - auction %s has no winner to settle", biddingerrors.ErrNotResolved, auctionID)
	}

	if err := s.settlement.MarkSettled(ctx, auctionID, s.clock.Now()); err != nil {
		return fmt.Errorf("service: failed to mark auction %s settled: %w", auctionID, err)
	}
	return nil
}

// IsSettled reports whether settlement of the auction has completed
func (s *BiddingService) IsSettled(ctx context.Context, auctionID string) (bool, error) {
	settled, err := s.settlement.IsSettled(ctx, auctionID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check settlement of auction %s: %w", auctionID, err)
	}
	return settled, nil
}

// selectWinner picks the highest active bid placed inside the window,
// skipping bids from exclude. Ties go to the earliest placement.
func selectWinner(auction models.Auction, bids []models.Bid, exclude string) *models.Bid {
	var best *models.Bid
	for i := range bids {
		b := bids[i]
		if b.Status != models.BidActive || !b.PlacedAt.Before(auction.EndAt) {
			continue
		}
		if exclude != "" && b.BidderID == exclude {
			continue
		}
		if best == nil || outranks(b, *best) {
			winner := b
			best = &winner
		}
	}
	return best
}

func outranks(a, b models.Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if !a.PlacedAt.Equal(b.PlacedAt) {
		return a.PlacedAt.Before(b.PlacedAt)
	}
	return a.Sequence < b.Sequence
}

func recordedResolution(auction models.Auction, bids []models.Bid) models.Resolution {
	res := models.Resolution{
		AuctionID:   auction.AuctionID,
		State:       auction.State,
		WinnerBidID: auction.WinnerBidID,
	}
	if auction.ResolvedAt != nil {
		res.ResolvedAt = *auction.ResolvedAt
	}
	if auction.WinnerBidID != nil {
		if idx := indexOfBid(bids, *auction.WinnerBidID); idx >= 0 {
			winner := bids[idx]
			res.WinningBid = &winner
		}
	}
	return res
}

func indexOfBid(bids []models.Bid, bidID string) int {
	for i := range bids {
		if bids[i].BidID == bidID {
			return i
		}
	}
	return -1
}

// publishResolution hands the outcome to the collaborators. Delivery
// failures are logged and never undo the recorded resolution.
func (s *BiddingService) publishResolution(ctx context.Context, res models.Resolution, promoted bool) {
	event := events.ResolutionEvent{
		EventID:     utils.GenerateID(),
		AuctionID:   res.AuctionID,
		WinnerBidID: res.WinnerBidID,
		Promoted:    promoted,
		ResolvedAt:  res.ResolvedAt,
	}
	if res.WinningBid != nil {
		event.BidderID = res.WinningBid.BidderID
		event.Amount = res.WinningBid.Amount
	}

	if err := s.publisher.PublishResolution(ctx, event); err != nil {
		utils.Error("failed to publish resolution event", map[string]any{
			"auction_id": res.AuctionID,
			"promoted":   promoted,
			"error":      err.Error(),
		})
	}
}

func resolutionFields(res models.Resolution) map[string]any {
	fields := map[string]any{
		"auction_id":  res.AuctionID,
		"resolved_at": res.ResolvedAt,
	}
	if res.WinningBid != nil {
		fields["winner_bid_id"] = res.WinningBid.BidID
		fields["bidder_id"] = res.WinningBid.BidderID
		fields["amount"] = res.WinningBid.Amount
	} else {
		fields["winner_bid_id"] = nil
	}
	return fields
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

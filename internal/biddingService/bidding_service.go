package bidding

import (
	"book-auction/internal/biddingerrors"
	"book-auction/internal/clock"
	"book-auction/internal/events"
	"book-auction/internal/models"
	"book-auction/internal/repository"
	"book-auction/internal/settlement"
	"book-auction/utils"
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultWithdrawalPenalty is the trust-score delta suggested to the reputation collaborator
const DefaultWithdrawalPenalty int64 = -200

// BiddingService is the auction engine: bid admission, resolution and read projections
type BiddingService struct {
	repo              repository.AuctionDB
	clock             clock.Clock
	locks             *auctionLocks
	publisher         events.Publisher
	settlement        settlement.Registry
	withdrawalPenalty int64
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock replaces the system clock
func WithClock(c clock.Clock) Option {
	return func(s *BiddingService) { s.clock = c }
}

// WithPublisher sets where withdrawal and resolution events are sent
func WithPublisher(p events.Publisher) Option {
	return func(s *BiddingService) { s.publisher = p }
}

// WithSettlement sets the settlement registry gating withdrawals
func WithSettlement(r settlement.Registry) Option {
	return func(s *BiddingService) { s.settlement = r }
}

// WithWithdrawalPenalty sets the penalty hint carried by withdrawal events
func WithWithdrawalPenalty(penalty int64) Option {
	return func(s *BiddingService) { s.withdrawalPenalty = penalty }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:              repo,
		clock:             clock.Real{},
		locks:             newAuctionLocks(),
		publisher:         events.LogPublisher{},
		settlement:        settlement.NewMemoryRegistry(),
		withdrawalPenalty: DefaultWithdrawalPenalty,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuction registers a new auction with a mandatory floor and window
func (s *BiddingService) CreateAuction(ctx context.Context, itemID string, floorAmount int64, startAt, endAt time.Time) (models.AuctionView, error) {
	if strings.TrimSpace(itemID) == "" {
		return models.AuctionView{}, fmt.Errorf("service: %w - missing itemID", biddingerrors.ErrInvalidAuction)
	}
	if floorAmount < 0 {
		return models.AuctionView{}, fmt.Errorf("service: %w - negative floor amount", biddingerrors.ErrInvalidAuction)
	}
	if !startAt.Before(endAt) {
		return models.AuctionView{}, fmt.Errorf("service: %w - start must be before end", biddingerrors.ErrInvalidAuction)
	}

	auction := models.Auction{
		AuctionID:   utils.GenerateID(),
		ItemID:      itemID,
		FloorAmount: floorAmount,
		StartAt:     startAt.UTC(),
		EndAt:       endAt.UTC(),
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.AuctionView{}, fmt.Errorf("service: failed to create auction for item %s: %w", itemID, err)
	}
	return models.NewAuctionView(auction, s.clock.Now()), nil
}

// GetAuction returns the stored auction record
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// AuctionView returns the auction with its effective state. A closed auction
// that has not been resolved yet is resolved on the way.
func (s *BiddingService) AuctionView(ctx context.Context, auctionID string) (models.AuctionView, error) {
	auction, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return models.AuctionView{}, err
	}

	if models.EffectiveState(auction, s.clock.Now()) == models.StateClosed {
		if _, err := s.Resolve(ctx, auctionID); err != nil {
			return models.AuctionView{}, err
		}
		if auction, err = s.GetAuction(ctx, auctionID); err != nil {
			return models.AuctionView{}, err
		}
	}

	return models.NewAuctionView(auction, s.clock.Now()), nil
}

// ListAuctions returns all auctions with their state at the current time
func (s *BiddingService) ListAuctions(ctx context.Context) ([]models.AuctionView, error) {
	auctions, err := s.repo.ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return s.views(auctions), nil
}

// PlaceBid validates and atomically admits a bid into the auction's ledger.
// The read-compare-append sequence runs under the auction's lock, so the
// active amounts of an auction are strictly increasing in admission order.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (models.Bid, error) {
	if strings.TrimSpace(bidderID) == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing bidderID", biddingerrors.ErrInvalidBidder)
	}

	unlock := s.locks.lock(auctionID)
	defer unlock()

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	now := s.clock.Now()
	if err := checkWindow(auction, now); err != nil {
		return models.Bid{}, err
	}

	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidAmount)
	}
	if amount <= auction.FloorAmount {
		return models.Bid{}, fmt.Errorf("service: %w - floor is %d", biddingerrors.ErrBelowFloor, auction.FloorAmount)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to read ledger of auction %s: %w", auctionID, err)
	}
	if highest := currentHighest(auction, bids); amount <= highest {
		return models.Bid{}, fmt.Errorf("service: %w - current highest bid is %d", biddingerrors.ErrBelowHighest, highest)
	}

	placedAt, seq := nextPlacement(bids, now)
	if !placedAt.Before(auction.EndAt) {
		return models.Bid{}, fmt.Errorf("service: %w: %w", biddingerrors.ErrAuctionNotOpen, biddingerrors.ErrAuctionEnded)
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  placedAt,
		Sequence:  seq,
		Status:    models.BidActive,
	}

	if err := s.repo.AppendBid(ctx, bid); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by bidder %s: %w", auctionID, bidderID, err)
	}

	return bid, nil
}

// checkWindow rejects admissions outside [StartAt, EndAt)
func checkWindow(auction models.Auction, now time.Time) error {
	if auction.State.IsTerminal() {
		return fmt.Errorf("service: %w: %w", biddingerrors.ErrAuctionNotOpen, biddingerrors.ErrAuctionEnded)
	}

	switch models.DeriveWindowState(auction, now) {
	case models.StateScheduled:
		return fmt.Errorf("service: %w: %w - starts at %s", biddingerrors.ErrAuctionNotOpen,
			biddingerrors.ErrAuctionNotStarted, auction.StartAt.Format(time.RFC3339))
	case models.StateClosed:
		return fmt.Errorf("service: %w: %w - ended at %s", biddingerrors.ErrAuctionNotOpen,
			biddingerrors.ErrAuctionEnded, auction.EndAt.Format(time.RFC3339))
	}
	return nil
}

// currentHighest is the larger of the floor and every active amount
func currentHighest(auction models.Auction, bids []models.Bid) int64 {
	highest := auction.FloorAmount
	for _, b := range bids {
		if b.Status == models.BidActive && b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest
}

// nextPlacement assigns the admission timestamp and sequence. Timestamps are
// kept at microsecond precision and strictly increase within an auction.
func nextPlacement(bids []models.Bid, now time.Time) (time.Time, int64) {
	placedAt := now.UTC().Truncate(time.Microsecond)
	if len(bids) == 0 {
		return placedAt, 1
	}

	last := bids[len(bids)-1]
	if !placedAt.After(last.PlacedAt) {
		placedAt = last.PlacedAt.Add(time.Microsecond)
	}
	return placedAt, last.Sequence + 1
}

// GetBidsForAuction returns the full ledger of an auction, withdrawn bids included
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetAuctionsByBidder returns all auctions a bidder has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]models.AuctionView, error) {
	if strings.TrimSpace(bidderID) == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrInvalidBidder)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for bidder %s: %w", bidderID, err)
	}
	return s.views(auctions), nil
}

func (s *BiddingService) views(auctions []models.Auction) []models.AuctionView {
	now := s.clock.Now()
	out := make([]models.AuctionView, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, models.NewAuctionView(a, now))
	}
	return out
}

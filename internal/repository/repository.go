package repository

import (
	"book-auction/internal/biddingerrors"
	model "book-auction/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB defines the auction store and bid ledger used by the bidding engine
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	UpdateAuctionResolution(ctx context.Context, auctionID string, state model.AuctionState, winnerBidID *string, resolvedAt time.Time) error
	AppendBid(ctx context.Context, bid model.Bid) error
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	RecordWithdrawal(ctx context.Context, w model.WithdrawalRecord) error
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
}

// auctionRecord holds one auction and its ledger behind its own lock
type auctionRecord struct {
	mu      sync.RWMutex
	auction model.Auction
	bids    []model.Bid
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Auctions are locked independently so ledgers of different auctions never contend.
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]*auctionRecord // key: auctionID

	biddersMu      sync.RWMutex
	bidderAuctions map[string][]string // key: bidderID -> value: auctionIDs in first-bid order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:       make(map[string]*auctionRecord),
		bidderAuctions: make(map[string][]string),
	}
}

func (r *MemoryRepo) record(auctionID string) (*auctionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.auctions[auctionID]
	return rec, ok
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrAlreadyExists)
	}
	r.auctions[auction.AuctionID] = &auctionRecord{auction: auction}
	return nil
}

// GetAuction returns a copy of the auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	rec, ok := r.record(auctionID)
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return copyAuction(rec.auction), nil
}

// ListAuctions returns all auctions ordered by start time
func (r *MemoryRepo) ListAuctions(_ context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	recs := make([]*auctionRecord, 0, len(r.auctions))
	for _, rec := range r.auctions {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		auctions = append(auctions, copyAuction(rec.auction))
		rec.mu.RUnlock()
	}

	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].StartAt.Equal(auctions[j].StartAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].StartAt.Before(auctions[j].StartAt)
	})
	return auctions, nil
}

// UpdateAuctionResolution records the resolution state and winner of an auction
func (r *MemoryRepo) UpdateAuctionResolution(_ context.Context, auctionID string, state model.AuctionState, winnerBidID *string, resolvedAt time.Time) error {
	rec, ok := r.record(auctionID)
	if !ok {
		return fmt.Errorf("update resolution for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.auction.State = state
	rec.auction.WinnerBidID = copyString(winnerBidID)
	ts := resolvedAt
	rec.auction.ResolvedAt = &ts
	return nil
}

// AppendBid appends a bid to the auction's ledger
func (r *MemoryRepo) AppendBid(_ context.Context, bid model.Bid) error {
	rec, ok := r.record(bid.AuctionID)
	if !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	rec.mu.Lock()
	rec.bids = append(rec.bids, bid)
	rec.mu.Unlock()

	r.biddersMu.Lock()
	defer r.biddersMu.Unlock()
	for _, id := range r.bidderAuctions[bid.BidderID] {
		if id == bid.AuctionID {
			return nil
		}
	}
	r.bidderAuctions[bid.BidderID] = append(r.bidderAuctions[bid.BidderID], bid.AuctionID)

	return nil
}

// GetBidsByAuction returns the full ledger of an auction in admission order
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	rec, ok := r.record(auctionID)
	if !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return append([]model.Bid{}, rec.bids...), nil
}

// RecordWithdrawal applies a withdrawal to the ledger and the auction in one step.
// Nothing changes when any referenced bid is missing.
func (r *MemoryRepo) RecordWithdrawal(_ context.Context, w model.WithdrawalRecord) error {
	rec, ok := r.record(w.AuctionID)
	if !ok {
		return fmt.Errorf("record withdrawal for auction %s: %w", w.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	index := make(map[string]int, len(rec.bids))
	for i := range rec.bids {
		index[rec.bids[i].BidID] = i
	}
	for _, id := range append([]string{w.WithdrawnBidID}, w.SupersededBidIDs...) {
		if _, found := index[id]; !found {
			return fmt.Errorf("record withdrawal of bid %s in auction %s: %w", id, w.AuctionID, biddingerrors.ErrBidNotFound)
		}
	}

	rec.bids[index[w.WithdrawnBidID]].Status = model.BidWithdrawn
	for _, id := range w.SupersededBidIDs {
		rec.bids[index[id]].Status = model.BidSuperseded
	}

	rec.auction.State = model.StateResolved
	rec.auction.WinnerBidID = copyString(w.NewWinnerBidID)
	ts := w.At
	rec.auction.ResolvedAt = &ts
	return nil
}

// GetAuctionsByBidder returns all auctions a bidder has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, bidderID string) ([]model.Auction, error) {
	r.biddersMu.RLock()
	auctionIDs := append([]string(nil), r.bidderAuctions[bidderID]...)
	r.biddersMu.RUnlock()

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if rec, exists := r.record(id); exists {
			rec.mu.RLock()
			auctions = append(auctions, copyAuction(rec.auction))
			rec.mu.RUnlock()
		}
	}
	return auctions, nil
}

func copyAuction(a model.Auction) model.Auction {
	a.WinnerBidID = copyString(a.WinnerBidID)
	if a.ResolvedAt != nil {
		ts := *a.ResolvedAt
		a.ResolvedAt = &ts
	}
	return a
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

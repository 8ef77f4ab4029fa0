package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionState is the lifecycle state of an auction
type AuctionState string

const (
	StateScheduled AuctionState = "scheduled"
	StateOpen      AuctionState = "open"
	StateClosed    AuctionState = "closed"
	StateResolved  AuctionState = "resolved"
	StateWithdrawn AuctionState = "withdrawn"
)

// IsTerminal reports whether the state is owned by the resolution engine
func (s AuctionState) IsTerminal() bool {
	return s == StateResolved || s == StateWithdrawn
}

// BidStatus is the ledger status of a bid
type BidStatus string

const (
	BidActive     BidStatus = "active"
	BidWithdrawn  BidStatus = "withdrawn"
	BidSuperseded BidStatus = "superseded"
)

// Auction represents a timed sale of one book
type Auction struct {
	AuctionID   string       `json:"auction_id"`
	ItemID      string       `json:"item_id"`
	FloorAmount int64        `json:"floor_amount"`
	StartAt     time.Time    `json:"start_at"`
	EndAt       time.Time    `json:"end_at"`
	State       AuctionState `json:"state,omitempty"` // recorded resolution state, empty until resolved
	WinnerBidID *string      `json:"winner_bid_id,omitempty"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Bid represents an admitted offer against an auction
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	Sequence  int64     `json:"sequence"`
	Status    BidStatus `json:"status"`
}

// DeriveWindowState computes the window state of an auction from the clock alone.
// The window is open on [StartAt, EndAt).
func DeriveWindowState(a Auction, now time.Time) AuctionState {
	switch {
	case now.Before(a.StartAt):
		return StateScheduled
	case now.Before(a.EndAt):
		return StateOpen
	default:
		return StateClosed
	}
}

// EffectiveState returns the resolution state when one is recorded, otherwise the window state
func EffectiveState(a Auction, now time.Time) AuctionState {
	if a.State.IsTerminal() {
		return a.State
	}
	return DeriveWindowState(a, now)
}

// AuctionView is an auction projected at a point in time
type AuctionView struct {
	Auction
	EffectiveState AuctionState `json:"effective_state"`
}

// NewAuctionView projects the auction at now
func NewAuctionView(a Auction, now time.Time) AuctionView {
	return AuctionView{Auction: a, EffectiveState: EffectiveState(a, now)}
}

// WithdrawalRecord is the ledger and auction change committed by one withdrawal
type WithdrawalRecord struct {
	AuctionID        string
	WithdrawnBidID   string
	SupersededBidIDs []string
	NewWinnerBidID   *string
	At               time.Time
}

// Resolution is the outcome of winner determination
type Resolution struct {
	AuctionID   string       `json:"auction_id"`
	State       AuctionState `json:"state"`
	WinnerBidID *string      `json:"winner_bid_id"`
	WinningBid  *Bid         `json:"winning_bid,omitempty"`
	ResolvedAt  time.Time    `json:"resolved_at"`
}

// TimeRemaining is the time left in the bidding window
type TimeRemaining struct {
	Remaining time.Duration `json:"remaining"`
	Ended     bool          `json:"ended"`
}

// Statistics summarizes the active bids of an auction
type Statistics struct {
	BidCount          int             `json:"bid_count"`
	UniqueBidderCount int             `json:"unique_bidder_count"`
	AverageAmount     decimal.Decimal `json:"average_amount"`
}

package helpers

import (
	"time"

	model "book-auction/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateAuctionRequest struct {
	ItemID      string    `json:"item_id" binding:"required"`
	FloorAmount int64     `json:"floor_amount" binding:"gte=0"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
}

// Amount is only required here; sign and floor checks belong to the engine
type PlaceBidRequest struct {
	BidderID string `json:"bidder_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
}

type WithdrawRequest struct {
	BidderID string `json:"bidder_id" binding:"required"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
	PlacedAt  string `json:"placed_at"`
	Sequence  int64  `json:"sequence"`
	Status    string `json:"status"`
}

type HighestResponse struct {
	AuctionID      string `json:"auction_id"`
	CurrentHighest int64  `json:"current_highest"`
	MinimumNextBid int64  `json:"minimum_next_bid"`
}

type TimeRemainingResponse struct {
	AuctionID        string `json:"auction_id"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Ended            bool   `json:"ended"`
}

type StatisticsResponse struct {
	AuctionID         string          `json:"auction_id"`
	BidCount          int             `json:"bid_count"`
	UniqueBidderCount int             `json:"unique_bidder_count"`
	AverageAmount     decimal.Decimal `json:"average_amount"`
}

type ResolutionResponse struct {
	AuctionID   string       `json:"auction_id"`
	State       string       `json:"state"`
	WinnerBidID *string      `json:"winner_bid_id"`
	WinningBid  *BidResponse `json:"winning_bid,omitempty"`
	ResolvedAt  string       `json:"resolved_at"`
}

type SettlementResponse struct {
	AuctionID string `json:"auction_id"`
	Settled   bool   `json:"settled"`
}

// NewBidResponse converts a ledger bid to its wire form
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt.UTC().Format(time.RFC3339Nano),
		Sequence:  bid.Sequence,
		Status:    string(bid.Status),
	}
}

// NewResolutionResponse converts a resolution to its wire form
func NewResolutionResponse(res model.Resolution) ResolutionResponse {
	resp := ResolutionResponse{
		AuctionID:   res.AuctionID,
		State:       string(res.State),
		WinnerBidID: res.WinnerBidID,
		ResolvedAt:  res.ResolvedAt.UTC().Format(time.RFC3339),
	}
	if res.WinningBid != nil {
		bid := NewBidResponse(*res.WinningBid)
		resp.WinningBid = &bid
	}
	return resp
}

// RemainingSeconds rounds the time left up to whole seconds
func RemainingSeconds(tr model.TimeRemaining) int64 {
	if tr.Ended || tr.Remaining <= 0 {
		return 0
	}
	return int64((tr.Remaining + time.Second - 1) / time.Second)
}

// Package events delivers auction outcomes to the external reputation and
// settlement collaborators.
package events

import (
	"context"
	"time"

	"book-auction/utils"
)

// Routing keys on the auction events exchange
const (
	RoutingKeyWithdrawn = "auction.withdrawn"
	RoutingKeyResolved  = "auction.resolved"
)

// WithdrawalEvent tells the reputation collaborator to penalize a bidder
type WithdrawalEvent struct {
	EventID     string    `json:"event_id"`
	AuctionID   string    `json:"auction_id"`
	BidderID    string    `json:"bidder_id"`
	BidID       string    `json:"bid_id"`
	PenaltyHint int64     `json:"penalty_hint"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
}

// ResolutionEvent announces the winner of an auction. It is emitted on the
// first resolution and again each time a withdrawal promotes a new winner.
type ResolutionEvent struct {
	EventID     string    `json:"event_id"`
	AuctionID   string    `json:"auction_id"`
	WinnerBidID *string   `json:"winner_bid_id"`
	BidderID    string    `json:"bidder_id,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	Promoted    bool      `json:"promoted"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Publisher sends engine events to collaborators
type Publisher interface {
	PublishWithdrawal(ctx context.Context, event WithdrawalEvent) error
	PublishResolution(ctx context.Context, event ResolutionEvent) error
}

// LogPublisher only writes events to the application log
type LogPublisher struct{}

func (LogPublisher) PublishWithdrawal(_ context.Context, event WithdrawalEvent) error {
	utils.Info("event: bidder withdrew from auction", map[string]any{
		"event_id":     event.EventID,
		"auction_id":   event.AuctionID,
		"bidder_id":    event.BidderID,
		"bid_id":       event.BidID,
		"penalty_hint": event.PenaltyHint,
	})
	return nil
}

func (LogPublisher) PublishResolution(_ context.Context, event ResolutionEvent) error {
	fields := map[string]any{
		"event_id":   event.EventID,
		"auction_id": event.AuctionID,
		"promoted":   event.Promoted,
	}
	if event.WinnerBidID != nil {
		fields["winner_bid_id"] = *event.WinnerBidID
		fields["bidder_id"] = event.BidderID
		fields["amount"] = event.Amount
	}
	utils.Info("event: auction resolved", fields)
	return nil
}

var (
	_ Publisher = LogPublisher{}
	_ Publisher = (*MemoryPublisher)(nil)
	_ Publisher = (*RabbitPublisher)(nil)
)

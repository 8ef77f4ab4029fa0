package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrAlreadyExists   = errors.New("auction already exists")
)

// Admission errors
var (
	ErrInvalidAuction = errors.New("invalid auction")
	ErrInvalidBidder  = errors.New("invalid bidder")
	ErrInvalidAmount  = errors.New("invalid bid amount")
	ErrBelowFloor     = errors.New("bid amount does not exceed floor")
	ErrBelowHighest   = errors.New("bid amount does not exceed current highest")

	ErrAuctionNotOpen    = errors.New("auction not open")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionEnded      = errors.New("auction has ended")
)

// Resolution and withdrawal errors
var (
	ErrAuctionNotClosed = errors.New("auction window has not closed")
	ErrNotResolved      = errors.New("auction not resolved")
	ErrNotWinner        = errors.New("bidder is not the current winner")
	ErrAlreadySettled   = errors.New("auction settlement already completed")
)

package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"book-auction/internal/biddingerrors"
	"book-auction/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrInvalidBidder):
		return http.StatusBadRequest, "invalid bidder"
	case errors.Is(err, biddingerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid bid amount"
	case errors.Is(err, biddingerrors.ErrBelowFloor):
		return http.StatusConflict, "bid must exceed the floor amount"
	case errors.Is(err, biddingerrors.ErrBelowHighest):
		return http.StatusConflict, "bid must exceed the current highest bid"
	case errors.Is(err, biddingerrors.ErrAuctionNotStarted):
		return http.StatusConflict, "auction has not started"
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return http.StatusConflict, "auction has ended"
	case errors.Is(err, biddingerrors.ErrAuctionNotOpen):
		return http.StatusConflict, "auction is not open"
	case errors.Is(err, biddingerrors.ErrAuctionNotClosed):
		return http.StatusConflict, "auction is still open"
	case errors.Is(err, biddingerrors.ErrNotResolved):
		return http.StatusConflict, "auction is not resolved"
	case errors.Is(err, biddingerrors.ErrAlreadySettled):
		return http.StatusConflict, "auction is already settled"
	case errors.Is(err, biddingerrors.ErrNotWinner):
		return http.StatusForbidden, "bidder is not the current winner"
	case errors.Is(err, biddingerrors.ErrAlreadyExists):
		return http.StatusConflict, "resource already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

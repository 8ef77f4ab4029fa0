package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	model "book-auction/internal/models"
	"book-auction/services/bidding/helpers"
	"book-auction/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

type BiddingServiceInterface interface {
	CreateAuction(ctx context.Context, itemID string, floorAmount int64, startAt, endAt time.Time) (model.AuctionView, error)
	ListAuctions(ctx context.Context) ([]model.AuctionView, error)
	AuctionView(ctx context.Context, auctionID string) (model.AuctionView, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (model.Bid, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]model.AuctionView, error)
	CurrentHighest(ctx context.Context, auctionID string) (int64, error)
	MinimumNextBid(ctx context.Context, auctionID string) (int64, error)
	TimeRemaining(ctx context.Context, auctionID string) (model.TimeRemaining, error)
	Statistics(ctx context.Context, auctionID string) (model.Statistics, error)
	Resolve(ctx context.Context, auctionID string) (model.Resolution, error)
	Withdraw(ctx context.Context, auctionID, bidderID string) (model.Resolution, error)
	MarkSettled(ctx context.Context, auctionID string) error
	IsSettled(ctx context.Context, auctionID string) (bool, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// respondError maps a service error to its HTTP status. Server faults log at error level, rejections at warn.
func respondError(c *gin.Context, handlerName, logMessage string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+logMessage, fields)
		return
	}
	utils.Warn(handlerName+": "+logMessage, fields)
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), req.ItemID, req.FloorAmount, req.StartAt, req.EndAt)
	if err != nil {
		respondError(c, "CreateAuctionHandler", "failed to create auction", err, map[string]any{"item_id": req.ItemID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":   auction.AuctionID,
		"item_id":      auction.ItemID,
		"floor_amount": auction.FloorAmount,
	})
}

// ListAuctionsHandler handles GET /auctions
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListAuctions(c.Request.Context())
	if err != nil {
		respondError(c, "ListAuctionsHandler", "error listing auctions", err, map[string]any{})
		return
	}

	if auctions == nil {
		auctions = []model.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("ListAuctionsHandler", "auctions retrieved successfully", map[string]any{"count": len(auctions)})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	view, err := h.service.AuctionView(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetAuctionHandler", "error retrieving auction", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, view, "auction retrieved successfully")
	helpers.LogSuccess("GetAuctionHandler", "auction retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"state":      view.EffectiveState,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), auctionID, req.BidderID, req.Amount)
	if err != nil {
		respondError(c, "PlaceBidHandler", "bid rejected", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
		"sequence":   bid.Sequence,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetBidsHandler", "error retrieving bids", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetHighestHandler handles GET /auctions/:auction_id/highest
func (h *BiddingHandler) GetHighestHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	ctx := c.Request.Context()

	highest, err := h.service.CurrentHighest(ctx, auctionID)
	if err != nil {
		respondError(c, "GetHighestHandler", "error retrieving highest bid", err, map[string]any{"auction_id": auctionID})
		return
	}
	next, err := h.service.MinimumNextBid(ctx, auctionID)
	if err != nil {
		respondError(c, "GetHighestHandler", "error retrieving minimum next bid", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.HighestResponse{
		AuctionID:      auctionID,
		CurrentHighest: highest,
		MinimumNextBid: next,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "highest bid retrieved successfully")
	helpers.LogSuccess("GetHighestHandler", "highest bid retrieved successfully", map[string]any{
		"auction_id":      auctionID,
		"current_highest": highest,
	})
}

// GetTimeRemainingHandler handles GET /auctions/:auction_id/time-remaining
func (h *BiddingHandler) GetTimeRemainingHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	tr, err := h.service.TimeRemaining(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetTimeRemainingHandler", "error retrieving time remaining", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.TimeRemainingResponse{
		AuctionID:        auctionID,
		RemainingSeconds: helpers.RemainingSeconds(tr),
		Ended:            tr.Ended,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "time remaining retrieved successfully")
}

// GetStatisticsHandler handles GET /auctions/:auction_id/statistics
func (h *BiddingHandler) GetStatisticsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	stats, err := h.service.Statistics(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetStatisticsHandler", "error retrieving statistics", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.StatisticsResponse{
		AuctionID:         auctionID,
		BidCount:          stats.BidCount,
		UniqueBidderCount: stats.UniqueBidderCount,
		AverageAmount:     stats.AverageAmount,
	}
	utils.JSONResponse(c, http.StatusOK, resp, "statistics retrieved successfully")
}

// ResolveHandler handles POST /auctions/:auction_id/resolve
func (h *BiddingHandler) ResolveHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	res, err := h.service.Resolve(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "ResolveHandler", "failed to resolve auction", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewResolutionResponse(res), "auction resolved successfully")
	helpers.LogSuccess("ResolveHandler", "auction resolved successfully", map[string]any{
		"auction_id":    auctionID,
		"winner_bid_id": res.WinnerBidID,
	})
}

// WithdrawHandler handles POST /auctions/:auction_id/withdraw
func (h *BiddingHandler) WithdrawHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "WithdrawHandler", err)
		return
	}

	res, err := h.service.Withdraw(c.Request.Context(), auctionID, req.BidderID)
	if err != nil {
		respondError(c, "WithdrawHandler", "withdrawal rejected", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewResolutionResponse(res), "winner withdrawn successfully")
	helpers.LogSuccess("WithdrawHandler", "winner withdrawn successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
	})
}

// MarkSettledHandler handles POST /auctions/:auction_id/settlement
func (h *BiddingHandler) MarkSettledHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if err := h.service.MarkSettled(c.Request.Context(), auctionID); err != nil {
		respondError(c, "MarkSettledHandler", "failed to mark settlement", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.SettlementResponse{AuctionID: auctionID, Settled: true}
	utils.JSONResponse(c, http.StatusOK, resp, "auction settled successfully")
	helpers.LogSuccess("MarkSettledHandler", "auction settled successfully", map[string]any{"auction_id": auctionID})
}

// GetSettlementHandler handles GET /auctions/:auction_id/settlement
func (h *BiddingHandler) GetSettlementHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	settled, err := h.service.IsSettled(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetSettlementHandler", "error checking settlement", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.SettlementResponse{AuctionID: auctionID, Settled: settled}
	utils.JSONResponse(c, http.StatusOK, resp, "settlement status retrieved successfully")
}

// GetAuctionsByBidderHandler handles GET /bidders/:bidder_id/auctions
func (h *BiddingHandler) GetAuctionsByBidderHandler(c *gin.Context) {
	bidderID := c.Param("bidder_id")
	auctions, err := h.service.GetAuctionsByBidder(c.Request.Context(), bidderID)
	if err != nil {
		respondError(c, "GetAuctionsByBidderHandler", "error retrieving auctions", err, map[string]any{"bidder_id": bidderID})
		return
	}

	if auctions == nil {
		auctions = []model.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByBidderHandler", "auctions retrieved successfully", map[string]any{
		"bidder_id":      bidderID,
		"auctions_count": len(auctions),
	})
}

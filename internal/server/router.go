package server

import (
	handler "book-auction/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestIDMiddleware)     // correlation id for logs and responses
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)

		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsHandler)

		auctions.GET("/:auction_id/highest", biddingHandler.GetHighestHandler)
		auctions.GET("/:auction_id/time-remaining", biddingHandler.GetTimeRemainingHandler)
		auctions.GET("/:auction_id/statistics", biddingHandler.GetStatisticsHandler)

		auctions.POST("/:auction_id/resolve", biddingHandler.ResolveHandler)
		auctions.POST("/:auction_id/withdraw", biddingHandler.WithdrawHandler)
		auctions.POST("/:auction_id/settlement", biddingHandler.MarkSettledHandler)
		auctions.GET("/:auction_id/settlement", biddingHandler.GetSettlementHandler)
	}

	bidders := router.Group("/bidders")
	{
		bidders.GET("/:bidder_id/auctions", biddingHandler.GetAuctionsByBidderHandler)
	}

	return router
}

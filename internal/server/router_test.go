package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"book-auction/internal/biddingerrors"
	"book-auction/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		incoming string
	}{
		{name: "propagates_header", incoming: "req-123"},
		{name: "generates_when_missing"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockSvc := handler.NewMockBiddingServiceInterface(ctrl)
			router := SetupRouter(mockSvc)

			req := httptest.NewRequest(http.MethodGet, "/auctions/missing/settlement", nil)
			if tc.incoming != "" {
				req.Header.Set("X-Request-ID", tc.incoming)
			}
			mockSvc.EXPECT().IsSettled(gomock.Any(), "missing").Return(false, biddingerrors.ErrAuctionNotFound)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusNotFound, w.Code)

			id := w.Header().Get("X-Request-ID")
			require.NotEmpty(t, id)
			if tc.incoming != "" {
				require.Equal(t, tc.incoming, id)
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, id, body["request_id"])
		})
	}
}

func TestSetupRouter_Routes(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := SetupRouter(handler.NewMockBiddingServiceInterface(ctrl))

	registered := map[string]bool{}
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /auctions",
		"GET /auctions",
		"GET /auctions/:auction_id",
		"POST /auctions/:auction_id/bids",
		"GET /auctions/:auction_id/bids",
		"GET /auctions/:auction_id/highest",
		"GET /auctions/:auction_id/time-remaining",
		"GET /auctions/:auction_id/statistics",
		"POST /auctions/:auction_id/resolve",
		"POST /auctions/:auction_id/withdraw",
		"POST /auctions/:auction_id/settlement",
		"GET /auctions/:auction_id/settlement",
		"GET /bidders/:bidder_id/auctions",
	} {
		require.True(t, registered[want], "route %s not registered", want)
	}
}

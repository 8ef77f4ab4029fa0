package integrationtests

import (
	bidding "book-auction/internal/biddingService"
	"book-auction/internal/clock"
	"book-auction/internal/events"
	"book-auction/internal/repository"
	"book-auction/internal/server"
	"book-auction/internal/settlement"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// testServer bundles the router with the collaborators a test may need to drive
type testServer struct {
	router    *gin.Engine
	clock     *clock.Fake
	publisher *events.MemoryPublisher
	registry  *settlement.MemoryRegistry
}

// SetupTestServer initializes the router over in-memory backends and a fake clock
func SetupTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		clock:     clock.NewFake(baseTime),
		publisher: events.NewMemoryPublisher(),
		registry:  settlement.NewMemoryRegistry(),
	}
	service := bidding.NewBiddingService(repository.NewMemoryRepo(),
		bidding.WithClock(ts.clock),
		bidding.WithPublisher(ts.publisher),
		bidding.WithSettlement(ts.registry),
	)
	ts.router = server.SetupRouter(service)
	return ts
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the response envelope.
// Successful responses are unwrapped to their data field.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (any, map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var envelope map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return envelope["data"], envelope, w
}

// createAuction posts a new auction and returns its id
func (ts *testServer) createAuction(t *testing.T, itemID string, floor int64, start, end time.Time) string {
	t.Helper()

	data, _, w := ExecuteRequestAndParse(t, ts.router, "POST", "/auctions", map[string]any{
		"item_id":      itemID,
		"floor_amount": floor,
		"start_at":     start.Format(time.RFC3339Nano),
		"end_at":       end.Format(time.RFC3339Nano),
	})
	if w.Code != 201 {
		t.Fatalf("create auction: unexpected status %d: %s", w.Code, w.Body.String())
	}
	return data.(map[string]any)["auction_id"].(string)
}

// placeBid posts a bid and returns the response recorder
func (ts *testServer) placeBid(t *testing.T, auctionID, bidderID string, amount int64) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	data, envelope, w := ExecuteRequestAndParse(t, ts.router, "POST", "/auctions/"+auctionID+"/bids", map[string]any{
		"bidder_id": bidderID,
		"amount":    amount,
	})
	if bid, ok := data.(map[string]any); ok {
		return bid, w
	}
	return envelope, w
}

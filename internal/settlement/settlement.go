// Package settlement tracks which resolved auctions have completed payment.
// Once an auction is settled its winner can no longer withdraw.
package settlement

import (
	"context"
	"sync"
	"time"
)

// Checker answers whether settlement of an auction has completed
type Checker interface {
	IsSettled(ctx context.Context, auctionID string) (bool, error)
}

// Registry is a Checker that the settlement collaborator can also write to
type Registry interface {
	Checker
	MarkSettled(ctx context.Context, auctionID string, at time.Time) error
}

// MemoryRegistry is an in-process Registry
type MemoryRegistry struct {
	mu      sync.RWMutex
	settled map[string]time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{settled: make(map[string]time.Time)}
}

func (r *MemoryRegistry) IsSettled(_ context.Context, auctionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.settled[auctionID]
	return ok, nil
}

// MarkSettled records settlement; marking twice keeps the first timestamp
func (r *MemoryRegistry) MarkSettled(_ context.Context, auctionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settled[auctionID]; !ok {
		r.settled[auctionID] = at
	}
	return nil
}

var (
	_ Registry = (*MemoryRegistry)(nil)
	_ Registry = (*RedisRegistry)(nil)
)

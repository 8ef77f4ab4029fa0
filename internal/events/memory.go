package events

import (
	"context"
	"sync"
)

// MemoryPublisher keeps published events in memory
type MemoryPublisher struct {
	mu          sync.Mutex
	withdrawals []WithdrawalEvent
	resolutions []ResolutionEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishWithdrawal(_ context.Context, event WithdrawalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.withdrawals = append(p.withdrawals, event)
	return nil
}

func (p *MemoryPublisher) PublishResolution(_ context.Context, event ResolutionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolutions = append(p.resolutions, event)
	return nil
}

// Withdrawals returns a copy of the withdrawal events published so far
func (p *MemoryPublisher) Withdrawals() []WithdrawalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WithdrawalEvent(nil), p.withdrawals...)
}

// Resolutions returns a copy of the resolution events published so far
func (p *MemoryPublisher) Resolutions() []ResolutionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ResolutionEvent(nil), p.resolutions...)
}

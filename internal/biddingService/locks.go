package bidding

import "sync"

// auctionLocks hands out one mutex per auction. Entries are reference counted
// and dropped once no caller holds or waits on them, so the registry only
// tracks auctions with work in flight.
type auctionLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAuctionLocks() *auctionLocks {
	return &auctionLocks{locks: make(map[string]*lockEntry)}
}

// lock blocks until the caller owns the auction and returns the release func
func (l *auctionLocks) lock(auctionID string) func() {
	l.mu.Lock()
	e, ok := l.locks[auctionID]
	if !ok {
		e = &lockEntry{}
		l.locks[auctionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, auctionID)
		}
		l.mu.Unlock()
	}
}

// size is the number of auctions currently tracked
func (l *auctionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

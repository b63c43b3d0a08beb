package shard

import (
	"sync/atomic"
	"time"
)

// Sweeper paces incremental, access-triggered cleanup: callers ask Due on
// their hot path and, at most once per interval, one of them is handed the
// next shard to sweep in round-robin order. No background goroutine needed.
type Sweeper struct {
	interval time.Duration
	next     atomic.Int64
	cursor   atomic.Uint64
}

func NewSweeper(interval time.Duration) *Sweeper {
	return &Sweeper{interval: interval}
}

// SweeperFor spreads a full pass over all shards across retention.
func SweeperFor(retention time.Duration, shards int) *Sweeper {
	if shards <= 0 {
		shards = 1
	}
	return NewSweeper(retention / time.Duration(shards))
}

func (s *Sweeper) Due(now time.Time, shards int) (int, bool) {
	next := s.next.Load()
	if now.UnixNano() < next {
		return 0, false
	}
	if !s.next.CompareAndSwap(next, now.Add(s.interval).UnixNano()) {
		return 0, false
	}
	return int((s.cursor.Add(1) - 1) % uint64(shards)), true
}

// Package authfailure counts failed authentication attempts per tracking key
// and reports when a key crosses the lockout threshold.
package authfailure

import (
	"sync"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/shard"
)

type entry struct {
	mu       sync.Mutex
	failures []time.Time
	locked   bool
	dead     bool
}

type Tracker struct {
	maxFailures int
	window      time.Duration
	now         func() time.Time
	entries     *shard.Map[entry]
	sweeper     *shard.Sweeper
}

func NewTracker(cfg config.DetectorConfig, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		maxFailures: cfg.MaxFailedLogins,
		window:      cfg.FailedLoginWindow,
		now:         now,
		entries:     shard.New[entry](cfg.ShardCount),
		sweeper:     shard.SweeperFor(cfg.FailedLoginWindow, cfg.ShardCount),
	}
}

// Window is the lockout window failures are counted over.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// RecordFailure registers one failed attempt for key. locked is true only
// on the call that crosses the threshold; further failures while the key is
// still over the threshold return false. The lock clears once enough
// failures age out of the window.
func (t *Tracker) RecordFailure(key string) (locked bool, attempts int) {
	now := t.now()
	t.maybeSweep(now)

	for {
		e := t.entries.GetOrCreate(key, func() *entry { return &entry{} })
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		e.failures = append(e.failures, now)
		e.failures = pruneBefore(e.failures, now.Add(-t.window))
		attempts = len(e.failures)
		if attempts < t.maxFailures {
			e.locked = false
		} else if !e.locked {
			e.locked = true
			locked = true
		}
		e.mu.Unlock()
		return locked, attempts
	}
}

// Attempts returns the failures for key still inside the window.
func (t *Tracker) Attempts(key string) int {
	e, ok := t.entries.Get(key)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := t.now().Add(-t.window)
	n := 0
	for _, ts := range e.failures {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func (t *Tracker) Len() int {
	return t.entries.Len()
}

func (t *Tracker) maybeSweep(now time.Time) {
	idx, ok := t.sweeper.Due(now, t.entries.Shards())
	if !ok {
		return
	}
	cutoff := now.Add(-t.window)
	t.entries.SweepShard(idx, func(_ string, e *entry) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if n := len(e.failures); n > 0 && e.failures[n-1].After(cutoff) {
			return false
		}
		e.dead = true
		return true
	})
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

package ratelimit

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/shard"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Verdict is the outcome of recording one request for a key.
type Verdict struct {
	Signals []types.ThreatSignal
	// Escalate is set once the key has exceeded the per-minute limit more
	// often than the configured tolerance; the caller blocks the key.
	Escalate   bool
	Violations int
}

type entry struct {
	mu         sync.Mutex
	timestamps []time.Time
	violations int
	dead       bool
}

// Tracker keeps a sliding window of request instants per tracking key.
type Tracker struct {
	perMinute      int
	perHour        int
	violationLimit int
	retention      time.Duration
	maxSamples     int
	now            func() time.Time
	entries        *shard.Map[entry]
	sweeper        *shard.Sweeper
}

func NewTracker(cfg config.DetectorConfig, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	retention := cfg.IdleRetention
	if retention < hourWindow {
		retention = hourWindow
	}
	return &Tracker{
		perMinute:      cfg.MaxRequestsPerMinute,
		perHour:        cfg.MaxRequestsPerHour,
		violationLimit: cfg.RateViolationLimit,
		retention:      retention,
		// one sample over the hourly limit is all the hourly check needs
		maxSamples: cfg.MaxRequestsPerHour + 1,
		now:        now,
		entries:    shard.New[entry](cfg.ShardCount),
		sweeper:    shard.SweeperFor(retention, cfg.ShardCount),
	}
}

// Check records a request for key and evaluates both windows.
func (t *Tracker) Check(key string) Verdict {
	now := t.now()
	t.maybeSweep(now)

	for {
		e := t.entries.GetOrCreate(key, func() *entry { return &entry{} })
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		v := t.record(e, now)
		e.mu.Unlock()
		return v
	}
}

func (t *Tracker) record(e *entry, now time.Time) Verdict {
	e.timestamps = append(e.timestamps, now)
	e.timestamps = prune(e.timestamps, now.Add(-hourWindow))
	if over := len(e.timestamps) - t.maxSamples; over > 0 {
		e.timestamps = append(e.timestamps[:0], e.timestamps[over:]...)
	}

	var v Verdict
	lastMinute := countSince(e.timestamps, now.Add(-minuteWindow))
	if lastMinute > t.perMinute {
		e.violations++
		v.Escalate = e.violations > t.violationLimit
		v.Signals = append(v.Signals, types.NewSignal(
			types.RateLimitExceeded,
			types.High,
			fmt.Sprintf("rate limit exceeded: %d requests in the last minute (limit %d)", lastMinute, t.perMinute),
			map[string]any{
				"limit":      t.perMinute,
				"actual":     lastMinute,
				"window":     "1m",
				"violations": e.violations,
			},
		))
	}

	if lastHour := len(e.timestamps); lastHour > t.perHour {
		v.Signals = append(v.Signals, types.NewSignal(
			types.RateLimitExceeded,
			types.Medium,
			fmt.Sprintf("rate limit exceeded: %d requests in the last hour (limit %d)", lastHour, t.perHour),
			map[string]any{
				"limit":  t.perHour,
				"actual": lastHour,
				"window": "1h",
			},
		))
	}
	v.Violations = e.violations
	return v
}

// Violations returns the per-minute violation count recorded for key.
func (t *Tracker) Violations(key string) int {
	e, ok := t.entries.Get(key)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.violations
}

// Len is the number of keys currently tracked.
func (t *Tracker) Len() int {
	return t.entries.Len()
}

func (t *Tracker) maybeSweep(now time.Time) {
	idx, ok := t.sweeper.Due(now, t.entries.Shards())
	if !ok {
		return
	}
	cutoff := now.Add(-t.retention)
	t.entries.SweepShard(idx, func(_ string, e *entry) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if n := len(e.timestamps); n > 0 && e.timestamps[n-1].After(cutoff) {
			return false
		}
		e.dead = true
		return true
	})
}

// prune drops the leading timestamps at or before cutoff, reusing the
// backing array.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(ts), func(i int) bool { return ts[i].After(cutoff) })
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

func countSince(ts []time.Time, cutoff time.Time) int {
	i := sort.Search(len(ts), func(i int) bool { return ts[i].After(cutoff) })
	return len(ts) - i
}

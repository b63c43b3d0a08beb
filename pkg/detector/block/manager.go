package block

import (
	"sync"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/detector/shard"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

// Permanent is the TTL that requests a block with no expiry.
const Permanent time.Duration = 0

type Subject string

const (
	SubjectIP   Subject = "ip"
	SubjectUser Subject = "user"
)

const (
	typeTemporary = "temporary"
	typePermanent = "permanent"
)

// Status describes the current block state of a key.
type Status struct {
	Blocked   bool      `json:"blocked"`
	Permanent bool      `json:"permanent"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// entry is mutated only under mu. A zero expiresAt on a blocked entry means
// permanent. dead entries were removed by a sweep and must not be reused.
type entry struct {
	mu        sync.Mutex
	blocked   bool
	expiresAt time.Time
	dead      bool
}

func (e *entry) activeAt(now time.Time) bool {
	return e.blocked && (e.expiresAt.IsZero() || now.Before(e.expiresAt))
}

// Manager holds the blocked IP and blocked user sets. Temporary blocks
// expire lazily: lookups compare the stored expiry against the clock and
// nothing is scheduled.
type Manager struct {
	logger  *logrus.Logger
	now     func() time.Time
	sets    map[Subject]*shard.Map[entry]
	sweeper *shard.Sweeper
}

func NewManager(logger *logrus.Logger, shards int, sweepEvery time.Duration, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		logger: logger,
		now:    now,
		sets: map[Subject]*shard.Map[entry]{
			SubjectIP:   shard.New[entry](shards),
			SubjectUser: shard.New[entry](shards),
		},
		sweeper: shard.NewSweeper(sweepEvery),
	}
}

func (m *Manager) BlockIP(ip string, ttl time.Duration) bool {
	return m.Block(SubjectIP, ip, ttl)
}

func (m *Manager) BlockUser(userID string, ttl time.Duration) bool {
	return m.Block(SubjectUser, userID, ttl)
}

// Block places key in the subject's set. A ttl of Permanent (or below)
// blocks until restart. Permanent blocks are never downgraded; a temporary
// block is upgraded to permanent or extended to the later expiry. Reports
// whether the stored state changed.
func (m *Manager) Block(subject Subject, key string, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	set := m.sets[subject]
	now := m.now()

	for {
		e := set.GetOrCreate(key, func() *entry { return &entry{} })
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		changed, kind := m.apply(e, now, ttl)
		e.mu.Unlock()

		if changed {
			prometheus.BlocksTotal.WithLabelValues(string(subject), kind).Inc()
			m.logger.WithFields(logrus.Fields{
				"subject": subject,
				"key":     key,
				"type":    kind,
				"ttl":     ttl.String(),
			}).Warn("block applied")
		}
		m.maybeSweep(now)
		return changed
	}
}

func (m *Manager) apply(e *entry, now time.Time, ttl time.Duration) (bool, string) {
	if ttl <= Permanent {
		if e.blocked && e.expiresAt.IsZero() {
			return false, typePermanent
		}
		e.blocked = true
		e.expiresAt = time.Time{}
		return true, typePermanent
	}

	if e.activeAt(now) && e.expiresAt.IsZero() {
		return false, typePermanent
	}
	expiry := now.Add(ttl)
	if e.activeAt(now) && !expiry.After(e.expiresAt) {
		return false, typeTemporary
	}
	e.blocked = true
	e.expiresAt = expiry
	return true, typeTemporary
}

func (m *Manager) IsIPBlocked(ip string) bool {
	return m.Status(SubjectIP, ip).Blocked
}

func (m *Manager) IsUserBlocked(userID string) bool {
	return m.Status(SubjectUser, userID).Blocked
}

func (m *Manager) Status(subject Subject, key string) Status {
	if key == "" {
		return Status{}
	}
	set, ok := m.sets[subject]
	if !ok {
		return Status{}
	}
	now := m.now()
	m.maybeSweep(now)

	e, ok := set.Get(key)
	if !ok {
		return Status{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || !e.activeAt(now) {
		return Status{}
	}
	return Status{
		Blocked:   true,
		Permanent: e.expiresAt.IsZero(),
		ExpiresAt: e.expiresAt,
	}
}

// Len counts stored entries, including expired ones not yet swept.
func (m *Manager) Len(subject Subject) int {
	return m.sets[subject].Len()
}

func (m *Manager) maybeSweep(now time.Time) {
	ipSet := m.sets[SubjectIP]
	idx, ok := m.sweeper.Due(now, ipSet.Shards())
	if !ok {
		return
	}
	removed := 0
	for _, set := range m.sets {
		removed += set.SweepShard(idx, func(_ string, e *entry) bool {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.activeAt(now) {
				return false
			}
			e.dead = true
			return true
		})
	}
	if removed > 0 {
		m.logger.WithFields(logrus.Fields{"shard": idx, "removed": removed}).Debug("expired blocks swept")
	}
}

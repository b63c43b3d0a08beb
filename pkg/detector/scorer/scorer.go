package scorer

import (
	"context"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/block"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/sirupsen/logrus"
)

type Action string

const (
	ActionNone           Action = "none"
	ActionTemporaryBlock Action = "temporary_block"
	ActionPermanentBlock Action = "permanent_block"
)

// Decision is what the scorer did with one request's signals.
type Decision struct {
	Score  int    `json:"score"`
	Action Action `json:"action"`
}

// Reporter accepts audit events without blocking the caller.
type Reporter interface {
	Emit(evt auditlogs.Event) bool
}

type Blocker interface {
	BlockIP(ip string, ttl time.Duration) bool
	BlockUser(userID string, ttl time.Duration) bool
}

type Scorer struct {
	logger     *logrus.Logger
	blocks     Blocker
	reporter   Reporter
	sanitizer  *auditlogs.Sanitizer
	suspicious int
	critical   int
	tempBlock  time.Duration
	now        func() time.Time
}

func New(
	cfg config.DetectorConfig,
	blocks Blocker,
	reporter Reporter,
	sanitizer *auditlogs.Sanitizer,
	logger *logrus.Logger,
	now func() time.Time,
) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{
		logger:     logger,
		blocks:     blocks,
		reporter:   reporter,
		sanitizer:  sanitizer,
		suspicious: cfg.SuspiciousScoreThreshold,
		critical:   cfg.CriticalScoreThreshold,
		tempBlock:  cfg.TempBlockDuration,
		now:        now,
	}
}

// Decide maps a score onto an escalation action.
func (s *Scorer) Decide(score int) Action {
	switch {
	case score >= s.critical:
		return ActionPermanentBlock
	case score >= s.suspicious:
		return ActionTemporaryBlock
	default:
		return ActionNone
	}
}

// Handle scores signals, reports every one of them and applies the
// resulting block. Reporting happens whatever the score.
func (s *Scorer) Handle(_ context.Context, req *types.Request, signals []types.ThreatSignal) Decision {
	d := Decision{Score: types.Score(signals)}
	d.Action = s.Decide(d.Score)

	now := s.now()
	extra := map[string]any{"score": d.Score, "action": string(d.Action)}
	for _, sig := range signals {
		s.reporter.Emit(auditlogs.NewEvent(sig, req, s.sanitizer, now, extra))
	}

	if d.Action == ActionNone || req == nil {
		return d
	}
	s.escalate(req, d)
	return d
}

func (s *Scorer) escalate(req *types.Request, d Decision) {
	ip := req.ClientIP()
	fields := logrus.Fields{
		"ip":     ip,
		"score":  d.Score,
		"action": d.Action,
	}
	if req.UserID != "" {
		fields["user_id"] = req.UserID
	}

	switch d.Action {
	case ActionPermanentBlock:
		s.blocks.BlockIP(ip, block.Permanent)
		if req.UserID != "" {
			s.blocks.BlockUser(req.UserID, block.Permanent)
		}
	case ActionTemporaryBlock:
		s.blocks.BlockIP(ip, s.tempBlock)
		fields["ttl"] = s.tempBlock.String()
	}
	s.logger.WithFields(fields).Warn("threat score escalated")
}

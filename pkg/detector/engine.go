// Package detector analyses inbound requests for attack patterns, abusive
// request rates and brute-force logins, and keeps the resulting block state.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/authfailure"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/block"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/matcher"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/ratelimit"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector/scorer"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/sirupsen/logrus"
)

type EngineOpts struct {
	TimeProvider   func() time.Time
	Registry       *matcher.Registry
	AuditWorkers   int
	AuditQueueSize int
	RedactHeaders  []string
}

// Engine owns all detection state for one process. It is safe for
// concurrent use.
type Engine struct {
	cfg        config.DetectorConfig
	logger     *logrus.Logger
	now        func() time.Time
	matchers   *matcher.Registry
	headers    *matcher.HeaderInspector
	rates      *ratelimit.Tracker
	failures   *authfailure.Tracker
	blocks     *block.Manager
	scorer     *scorer.Scorer
	sanitizer  *auditlogs.Sanitizer
	dispatcher *auditlogs.Dispatcher
}

// NewEngine validates cfg and starts the audit workers delivering to sink.
// Call Close to drain them.
func NewEngine(cfg config.DetectorConfig, sink auditlogs.Sink, logger *logrus.Logger, opts *EngineOpts) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create detector engine: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if sink == nil {
		sink = auditlogs.NewLoggerSink(logger)
	}
	if opts == nil {
		opts = &EngineOpts{}
	}
	now := opts.TimeProvider
	if now == nil {
		now = time.Now
	}
	registry := opts.Registry
	if registry == nil {
		registry = matcher.DefaultRegistry()
	}

	sanitizer := auditlogs.NewSanitizer(opts.RedactHeaders...)
	dispatcher := auditlogs.NewDispatcher(sink, logger, opts.AuditWorkers, opts.AuditQueueSize)
	blocks := block.NewManager(logger, cfg.ShardCount, cfg.IdleRetention/time.Duration(cfg.ShardCount), now)

	return &Engine{
		cfg:        cfg,
		logger:     logger,
		now:        now,
		matchers:   registry,
		headers:    matcher.NewHeaderInspector(),
		rates:      ratelimit.NewTracker(cfg, now),
		failures:   authfailure.NewTracker(cfg, now),
		blocks:     blocks,
		scorer:     scorer.New(cfg, blocks, dispatcher, sanitizer, logger, now),
		sanitizer:  sanitizer,
		dispatcher: dispatcher,
	}, nil
}

// AnalyzeRequest runs every check against req and returns the signals
// found, never nil. It does not reject anything itself. An internal fault
// is logged and the signals collected up to that point are returned.
func (e *Engine) AnalyzeRequest(ctx context.Context, req *types.Request) (signals []types.ThreatSignal) {
	start := time.Now()
	signals = make([]types.ThreatSignal, 0, 4)
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"panic": r,
				"ip":    req.ClientIP(),
			}).Error("panic while analysing request")
		}
		prometheus.AnalyzeLatency.Observe(float64(time.Since(start).Microseconds()) / 1000)
		countSignals(signals)
	}()
	if req == nil {
		return signals
	}

	ip := req.ClientIP()
	if e.blocks.IsIPBlocked(ip) {
		signals = append(signals, types.NewSignal(
			types.BlockedIP, types.High, "request from blocked IP",
			map[string]any{"ip": ip},
		))
	}
	if req.UserID != "" && e.blocks.IsUserBlocked(req.UserID) {
		signals = append(signals, types.NewSignal(
			types.BlockedUser, types.High, "request from blocked user",
			map[string]any{"user_id": req.UserID},
		))
	}

	verdict := e.rates.Check(req.TrackingKey())
	signals = append(signals, verdict.Signals...)
	if verdict.Escalate {
		e.blockKey(req, block.Permanent, "rate limit violations exceeded tolerance")
	}

	signals = append(signals, e.matchers.Detect(matcher.CollectFields(req))...)
	signals = append(signals, e.headers.Inspect(req.Headers)...)

	if len(signals) > 0 {
		e.scorer.Handle(ctx, req, signals)
	}
	return signals
}

// RecordFailure registers a failed authentication for the request's
// tracking key. It returns true only on the attempt that crosses the
// lockout threshold; that attempt is reported as BRUTE_FORCE and the user
// (or, when anonymous, the IP) is blocked for the temporary block duration.
func (e *Engine) RecordFailure(_ context.Context, req *types.Request) bool {
	if req == nil {
		return false
	}
	locked, attempts := e.failures.RecordFailure(req.TrackingKey())
	if !locked {
		return false
	}

	sig := types.NewSignal(
		types.BruteForce,
		types.High,
		fmt.Sprintf("%d failed authentication attempts within %s", attempts, e.failures.Window()),
		map[string]any{
			"attempts": attempts,
			"window":   e.failures.Window().String(),
		},
	)
	countSignals([]types.ThreatSignal{sig})
	e.dispatcher.Emit(auditlogs.NewEvent(sig, req, e.sanitizer, e.now(), nil))
	e.blockKey(req, e.cfg.TempBlockDuration, "brute force lockout")
	return true
}

func (e *Engine) IsBlocked(ip string) bool {
	return e.blocks.IsIPBlocked(ip)
}

func (e *Engine) IsUserBlocked(userID string) bool {
	return userID != "" && e.blocks.IsUserBlocked(userID)
}

// BlockStatus reports the block state of an IP or user id.
func (e *Engine) BlockStatus(subject block.Subject, key string) block.Status {
	return e.blocks.Status(subject, key)
}

// Close stops the audit workers after delivering what is queued.
func (e *Engine) Close(ctx context.Context) error {
	return e.dispatcher.Shutdown(ctx)
}

// blockKey blocks the request's tracking identity: the user when
// authenticated, otherwise the client IP.
func (e *Engine) blockKey(req *types.Request, ttl time.Duration, reason string) {
	fields := logrus.Fields{"reason": reason, "ip": req.ClientIP()}
	if req.UserID != "" {
		fields["user_id"] = req.UserID
		e.blocks.BlockUser(req.UserID, ttl)
	} else {
		e.blocks.BlockIP(req.ClientIP(), ttl)
	}
	e.logger.WithFields(fields).Warn("tracking key blocked")
}

func countSignals(signals []types.ThreatSignal) {
	for _, s := range signals {
		prometheus.SignalsTotal.WithLabelValues(string(s.Kind), string(s.Severity)).Inc()
	}
}

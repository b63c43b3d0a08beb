package middleware_test

import (
	"context"
	"io"
	"sync"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubAnalyzer struct {
	mu       sync.Mutex
	signals  []types.ThreatSignal
	requests []*types.Request
}

func (s *stubAnalyzer) AnalyzeRequest(_ context.Context, req *types.Request) []types.ThreatSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return append([]types.ThreatSignal{}, s.signals...)
}

func (s *stubAnalyzer) last() *types.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

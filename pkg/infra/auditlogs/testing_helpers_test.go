package auditlogs

import (
	"context"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) LogViolation(ctx context.Context, evt Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func sampleEvent() Event {
	return Event{
		ID:        "6f1c2a4e-8d55-4c59-9a57-0f5d2b8e7a11",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Category:  CategoryRunTimeSecurity,
		Kind:      types.SQLInjection,
		Severity:  types.Critical,
		Message:   "SQL injection pattern detected in query \"q\"",
		Subject:   Subject{IP: "203.0.113.7", UserID: "user-1"},
		Detail:    map[string]any{"field": "q", "score": 20},
		Request: RequestMeta{
			URL:     "/search?q=x",
			Method:  "GET",
			Headers: map[string]string{"Authorization": redacted},
			TraceID: "trace-1",
		},
	}
}

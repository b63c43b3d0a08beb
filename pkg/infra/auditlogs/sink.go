package auditlogs

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

type Sink interface {
	LogViolation(ctx context.Context, evt Event) error
}

// MultiSink fans an event out to every sink and joins their errors. One
// failing backend does not stop delivery to the others.
type MultiSink []Sink

func (m MultiSink) LogViolation(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if err := s.LogViolation(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type LoggerSink struct {
	logger *logrus.Logger
}

func NewLoggerSink(logger *logrus.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) LogViolation(_ context.Context, evt Event) error {
	fields := logrus.Fields{
		"event_id": evt.ID,
		"kind":     evt.Kind,
		"severity": evt.Severity,
		"ip":       evt.Subject.IP,
		"method":   evt.Request.Method,
		"url":      evt.Request.URL,
	}
	if evt.Subject.UserID != "" {
		fields["user_id"] = evt.Subject.UserID
	}
	if evt.Request.TraceID != "" {
		fields["trace_id"] = evt.Request.TraceID
	}
	for k, v := range evt.Detail {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	s.logger.WithFields(fields).Warn(evt.Message)
	return nil
}

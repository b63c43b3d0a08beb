package auditlogs

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/ThreatGuard/pkg/domain"
	"github.com/NeuralTrust/ThreatGuard/pkg/domain/threatevent"
	"github.com/google/uuid"
)

type DatabaseSink struct {
	repo threatevent.Repository
}

func NewDatabaseSink(repo threatevent.Repository) *DatabaseSink {
	return &DatabaseSink{repo: repo}
}

func (s *DatabaseSink) LogViolation(ctx context.Context, evt Event) error {
	if err := s.repo.Save(ctx, toThreatEvent(evt)); err != nil {
		return fmt.Errorf("failed to persist audit event %s: %w", evt.ID, err)
	}
	return nil
}

func toThreatEvent(evt Event) *threatevent.ThreatEvent {
	id, err := uuid.Parse(evt.ID)
	if err != nil {
		id = uuid.Nil
	}
	return &threatevent.ThreatEvent{
		ID:        id,
		Kind:      string(evt.Kind),
		Severity:  string(evt.Severity),
		Message:   evt.Message,
		IP:        evt.Subject.IP,
		UserID:    evt.Subject.UserID,
		Method:    evt.Request.Method,
		URL:       evt.Request.URL,
		TraceID:   evt.Request.TraceID,
		Headers:   domain.HeadersJSON(evt.Request.Headers),
		Detail:    domain.DetailJSON(evt.Detail),
		CreatedAt: evt.Timestamp,
	}
}

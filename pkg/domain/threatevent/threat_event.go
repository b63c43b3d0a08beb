package threatevent

import (
	"errors"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMissingKind = errors.New("threat event kind is required")

// ThreatEvent is the persisted form of an audit event.
type ThreatEvent struct {
	ID        uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	Kind      string             `json:"kind" gorm:"index"`
	Severity  string             `json:"severity"`
	Message   string             `json:"message"`
	IP        string             `json:"ip" gorm:"index"`
	UserID    string             `json:"user_id,omitempty" gorm:"index"`
	Method    string             `json:"method"`
	URL       string             `json:"url"`
	TraceID   string             `json:"trace_id,omitempty"`
	Headers   domain.HeadersJSON `json:"headers" gorm:"type:jsonb"`
	Detail    domain.DetailJSON  `json:"detail" gorm:"type:jsonb"`
	CreatedAt time.Time          `json:"created_at"`
}

func (ThreatEvent) TableName() string {
	return "threat_events"
}

func (e *ThreatEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return e.Validate()
}

func (e *ThreatEvent) Validate() error {
	if e.Kind == "" {
		return ErrMissingKind
	}
	return nil
}

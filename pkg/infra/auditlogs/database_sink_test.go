package auditlogs

import (
	"context"
	"errors"
	"testing"

	"github.com/NeuralTrust/ThreatGuard/pkg/domain/threatevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockThreatEventRepository struct {
	mock.Mock
}

func (m *mockThreatEventRepository) Save(ctx context.Context, evt *threatevent.ThreatEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func TestDatabaseSink_MapsEvent(t *testing.T) {
	repo := &mockThreatEventRepository{}
	evt := sampleEvent()

	repo.On("Save", mock.Anything, mock.MatchedBy(func(row *threatevent.ThreatEvent) bool {
		return row.ID.String() == evt.ID &&
			row.Kind == "SQL_INJECTION" &&
			row.Severity == "CRITICAL" &&
			row.IP == "203.0.113.7" &&
			row.UserID == "user-1" &&
			row.TraceID == "trace-1" &&
			row.Headers["Authorization"] == redacted &&
			row.Detail["field"] == "q" &&
			row.CreatedAt.Equal(evt.Timestamp)
	})).Return(nil)

	assert.NoError(t, NewDatabaseSink(repo).LogViolation(context.Background(), evt))
	repo.AssertExpectations(t)
}

func TestDatabaseSink_WrapsRepositoryErrors(t *testing.T) {
	repo := &mockThreatEventRepository{}
	dbErr := errors.New("connection reset")
	repo.On("Save", mock.Anything, mock.Anything).Return(dbErr)

	err := NewDatabaseSink(repo).LogViolation(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, dbErr)
}

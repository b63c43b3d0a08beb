package auditlogs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMultiSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	evt := sampleEvent()
	errA := errors.New("redis down")
	errC := errors.New("webhook down")

	a, b, c := &mockSink{}, &mockSink{}, &mockSink{}
	a.On("LogViolation", mock.Anything, evt).Return(errA)
	b.On("LogViolation", mock.Anything, evt).Return(nil)
	c.On("LogViolation", mock.Anything, evt).Return(errC)

	err := MultiSink{a, b, c}.LogViolation(context.Background(), evt)

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	a.AssertExpectations(t)
	b.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestMultiSink_NoErrors(t *testing.T) {
	s := &mockSink{}
	s.On("LogViolation", mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, MultiSink{s}.LogViolation(context.Background(), sampleEvent()))
	assert.NoError(t, MultiSink{}.LogViolation(context.Background(), sampleEvent()))
}

func TestLoggerSink_WritesStructuredWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	require.NoError(t, NewLoggerSink(logger).LogViolation(context.Background(), sampleEvent()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "SQL_INJECTION", entry["kind"])
	assert.Equal(t, "CRITICAL", entry["severity"])
	assert.Equal(t, "203.0.113.7", entry["ip"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "q", entry["field"])
}

package auditlogs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSink_AppendsToCappedStream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	evt := sampleEvent()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "violations",
		MaxLen: 500,
		Approx: true,
		Values: []interface{}{"kind", "SQL_INJECTION", "severity", "CRITICAL", "event", string(payload)},
	}).SetVal("1700000000000-0")

	sink := NewRedisSink(db, "violations", 500)
	assert.NoError(t, sink.LogViolation(context.Background(), evt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSink_DefaultStreamUncapped(t *testing.T) {
	db, mock := redismock.NewClientMock()
	evt := sampleEvent()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: DefaultStream,
		Values: []interface{}{"kind", "SQL_INJECTION", "severity", "CRITICAL", "event", string(payload)},
	}).SetVal("1-0")

	assert.NoError(t, NewRedisSink(db, "", 0).LogViolation(context.Background(), evt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSink_PropagatesErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	evt := sampleEvent()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "violations",
		MaxLen: 10,
		Approx: true,
		Values: []interface{}{"kind", "SQL_INJECTION", "severity", "CRITICAL", "event", string(payload)},
	}).SetErr(errors.New("READONLY"))

	err = NewRedisSink(db, "violations", 10).LogViolation(context.Background(), evt)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "violations")
	assert.Contains(t, err.Error(), "READONLY")
}

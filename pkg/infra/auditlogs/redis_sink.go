package auditlogs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const DefaultStream = "threatguard:violations"

// RedisSink appends events to a capped Redis stream so downstream consumers
// can follow violations with XREAD.
type RedisSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisSink(client redis.Cmdable, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) LogViolation(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if err := s.client.XAdd(ctx, s.args(evt, payload)).Err(); err != nil {
		return fmt.Errorf("failed to append audit event to stream %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSink) args(evt Event, payload []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: []interface{}{
			"kind", string(evt.Kind),
			"severity", string(evt.Severity),
			"event", string(payload),
		},
	}
}

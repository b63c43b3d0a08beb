package common

type contextKey string

const (
	TraceIdKey        contextKey = "trace_id"
	UserIDContextKey  contextKey = "user_id"
	SignalsContextKey contextKey = "threat_signals"
)

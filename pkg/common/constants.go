package common

const (
	TraceIDHeader = "X-Trace-Id"
	// ThreatScoreHeader is set on responses when the threat middleware
	// annotates instead of rejecting.
	ThreatScoreHeader = "X-Threat-Score"
)

package auditlogs

import (
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/NeuralTrust/ThreatGuard/pkg/utils"
	"github.com/google/uuid"
)

// Event is one reported violation. It is self-contained so sinks never need
// to reach back into the request.
type Event struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Category  string               `json:"category"`
	Kind      types.Kind           `json:"kind"`
	Severity  types.Severity       `json:"severity"`
	Message   string               `json:"message"`
	Subject   Subject              `json:"subject"`
	Detail    map[string]any       `json:"detail,omitempty"`
	Request   RequestMeta          `json:"request"`
	Client    *utils.UserAgentInfo `json:"client,omitempty"`
}

type Subject struct {
	UserID string `json:"userId,omitempty"`
	IP     string `json:"ip"`
}

type RequestMeta struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	TraceID string            `json:"traceId,omitempty"`
}

// NewEvent builds the audit record for signal. Headers are redacted by s
// before they are attached; extra entries are merged over the signal
// context without touching the signal itself.
func NewEvent(signal types.ThreatSignal, req *types.Request, s *Sanitizer, now time.Time, extra map[string]any) Event {
	detail := make(map[string]any, len(signal.Context)+len(extra))
	for k, v := range signal.Context {
		detail[k] = v
	}
	for k, v := range extra {
		detail[k] = v
	}

	evt := Event{
		ID:        uuid.New().String(),
		Timestamp: now.UTC(),
		Category:  CategoryRunTimeSecurity,
		Kind:      signal.Kind,
		Severity:  signal.Severity,
		Message:   signal.Message,
		Detail:    detail,
	}
	if req == nil {
		return evt
	}

	evt.Subject = Subject{UserID: req.UserID, IP: req.IP}
	evt.Request = RequestMeta{
		URL:     requestURL(req),
		Method:  req.Method,
		Headers: s.Headers(req.Headers),
		TraceID: req.TraceID,
	}
	ua, _ := req.Header("User-Agent")
	lang, _ := req.Header("Accept-Language")
	evt.Client = utils.ParseUserAgent(ua, lang)
	return evt
}

func requestURL(req *types.Request) string {
	if req.URL != "" {
		return req.URL
	}
	return req.Path
}

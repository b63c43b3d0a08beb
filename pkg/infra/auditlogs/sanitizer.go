package auditlogs

import "strings"

// Sanitizer strips credentials from request headers before they leave the
// process.
type Sanitizer struct {
	redact map[string]struct{}
}

// NewSanitizer redacts the built-in sensitive headers plus extra.
func NewSanitizer(extra ...string) *Sanitizer {
	s := &Sanitizer{redact: make(map[string]struct{}, len(sensitiveHeaders)+len(extra))}
	for _, h := range sensitiveHeaders {
		s.redact[h] = struct{}{}
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.redact[h] = struct{}{}
		}
	}
	return s
}

// Headers returns a copy of headers with sensitive values replaced. The
// input map is never modified.
func (s *Sanitizer) Headers(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if s.IsSensitive(k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Sanitizer) IsSensitive(header string) bool {
	if s == nil {
		_, ok := defaultSanitizer.redact[strings.ToLower(header)]
		return ok
	}
	_, ok := s.redact[strings.ToLower(header)]
	return ok
}

var defaultSanitizer = NewSanitizer()

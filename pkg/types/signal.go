package types

// Kind identifies the category of a detection.
type Kind string

const (
	SQLInjection      Kind = "SQL_INJECTION"
	XSSAttempt        Kind = "XSS_ATTEMPT"
	PathTraversal     Kind = "PATH_TRAVERSAL"
	CommandInjection  Kind = "COMMAND_INJECTION"
	SuspiciousHeaders Kind = "SUSPICIOUS_HEADERS"
	HeaderInjection   Kind = "HEADER_INJECTION"
	ScannerDetected   Kind = "SCANNER_DETECTED"
	RateLimitExceeded Kind = "RATE_LIMIT_EXCEEDED"
	BruteForce        Kind = "BRUTE_FORCE"
	BlockedIP         Kind = "BLOCKED_IP"
	BlockedUser       Kind = "BLOCKED_USER"
)

type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Medium   Severity = "MEDIUM"
	Low      Severity = "LOW"
)

// Weight is the contribution of a severity to the threat score.
func (s Severity) Weight() int {
	switch s {
	case Critical:
		return 20
	case High:
		return 10
	case Medium:
		return 5
	case Low:
		return 1
	default:
		return 0
	}
}

// ThreatSignal is a single finding produced while analysing a request.
// Signals are built once and never mutated afterwards.
type ThreatSignal struct {
	Kind     Kind           `json:"kind"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

func NewSignal(kind Kind, severity Severity, message string, ctx map[string]any) ThreatSignal {
	return ThreatSignal{
		Kind:     kind,
		Severity: severity,
		Message:  message,
		Context:  ctx,
	}
}

// Score sums the severity weights of the given signals.
func Score(signals []ThreatSignal) int {
	score := 0
	for _, s := range signals {
		score += s.Severity.Weight()
	}
	return score
}

// HasKind reports whether any signal is of the given kind.
func HasKind(signals []ThreatSignal, kind Kind) bool {
	for _, s := range signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// HasSeverity reports whether any signal carries the given severity.
func HasSeverity(signals []ThreatSignal, severity Severity) bool {
	for _, s := range signals {
		if s.Severity == severity {
			return true
		}
	}
	return false
}

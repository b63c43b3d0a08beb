package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
)

const (
	maxForwardedHops   = 3
	maxUserAgentLength = 500
)

var scannerSignatures = []string{
	"sqlmap",
	"nikto",
	"nessus",
	"metasploit",
	"burp",
	"scanner",
}

// HeaderInspector flags anomalies in request headers. Unlike the body
// matchers it may return several signals for one request.
type HeaderInspector struct {
	maxHops       int
	maxUALength   int
	scannerAgents []string
}

func NewHeaderInspector() *HeaderInspector {
	return &HeaderInspector{
		maxHops:       maxForwardedHops,
		maxUALength:   maxUserAgentLength,
		scannerAgents: scannerSignatures,
	}
}

func (h *HeaderInspector) Inspect(headers map[string]string) []types.ThreatSignal {
	var signals []types.ThreatSignal

	if xff, ok := types.LookupHeader(headers, "X-Forwarded-For"); ok {
		if hops := countHops(xff); hops > h.maxHops {
			signals = append(signals, types.NewSignal(
				types.SuspiciousHeaders,
				types.Medium,
				fmt.Sprintf("long proxy chain: %d hops in X-Forwarded-For", hops),
				map[string]any{"header": "X-Forwarded-For", "hops": hops},
			))
		}
	}

	if name, ok := firstHeaderWithCRLF(headers); ok {
		signals = append(signals, types.NewSignal(
			types.HeaderInjection,
			types.High,
			fmt.Sprintf("line break in header %q", name),
			map[string]any{"header": name},
		))
	}

	if ua, ok := types.LookupHeader(headers, "User-Agent"); ok {
		if len(ua) > h.maxUALength {
			signals = append(signals, types.NewSignal(
				types.SuspiciousHeaders,
				types.Low,
				fmt.Sprintf("oversized User-Agent (%d bytes)", len(ua)),
				map[string]any{"header": "User-Agent", "length": len(ua)},
			))
		}
		if sig, found := h.scannerSignature(ua); found {
			signals = append(signals, types.NewSignal(
				types.ScannerDetected,
				types.High,
				fmt.Sprintf("security scanner user agent (%s)", sig),
				map[string]any{"header": "User-Agent", "signature": sig},
			))
		}
	}

	return signals
}

func (h *HeaderInspector) scannerSignature(ua string) (string, bool) {
	lower := strings.ToLower(ua)
	for _, sig := range h.scannerAgents {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	return "", false
}

func countHops(xff string) int {
	hops := 0
	for _, part := range strings.Split(xff, ",") {
		if strings.TrimSpace(part) != "" {
			hops++
		}
	}
	return hops
}

func firstHeaderWithCRLF(headers map[string]string) (string, bool) {
	names := make([]string, 0, len(headers))
	for k, v := range headers {
		if strings.ContainsAny(v, "\r\n") {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

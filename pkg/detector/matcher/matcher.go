// Package matcher holds the signature based detectors run against every
// string the request carries.
package matcher

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
)

// maxDecodeRounds bounds URL decoding so doubly encoded payloads are seen
// without looping on pathological input.
const maxDecodeRounds = 2

const maxReportedValue = 100

type Source string

const (
	SourceQuery  Source = "query"
	SourceBody   Source = "body"
	SourceParams Source = "params"
	SourcePath   Source = "path"
)

// Field is one named string extracted from a request.
type Field struct {
	Source Source
	Name   string
	Value  string
}

type Matcher interface {
	Name() string
	// Detect returns a signal for the first field that matches, or nil.
	Detect(fields []Field) *types.ThreatSignal
}

// Registry runs matchers in registration order.
type Registry struct {
	matchers []Matcher
}

func NewRegistry(matchers ...Matcher) *Registry {
	return &Registry{matchers: matchers}
}

// DefaultRegistry returns the built-in matchers: SQL injection, XSS, path
// traversal and command injection.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewSQLInjectionMatcher(),
		NewXSSMatcher(),
		NewPathTraversalMatcher(),
		NewCommandInjectionMatcher(),
	)
}

func (r *Registry) Matchers() []Matcher {
	return r.matchers
}

// Detect collects at most one signal per matcher.
func (r *Registry) Detect(fields []Field) []types.ThreatSignal {
	var signals []types.ThreatSignal
	for _, m := range r.matchers {
		if sig := m.Detect(fields); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

// patternMatcher is a Matcher driven by a fixed list of expressions.
type patternMatcher struct {
	name     string
	kind     types.Kind
	severity types.Severity
	label    string
	patterns []*regexp.Regexp
	// sources limits the fields inspected; nil means all but the raw path.
	sources map[Source]bool
}

func (m *patternMatcher) Name() string {
	return m.name
}

func (m *patternMatcher) accepts(src Source) bool {
	if m.sources == nil {
		return src != SourcePath
	}
	return m.sources[src]
}

func (m *patternMatcher) Detect(fields []Field) *types.ThreatSignal {
	for _, f := range fields {
		if !m.accepts(f.Source) {
			continue
		}
		for round, candidate := range Candidates(f.Value) {
			for _, re := range m.patterns {
				if !re.MatchString(candidate) {
					continue
				}
				sig := types.NewSignal(
					m.kind,
					m.severity,
					fmt.Sprintf("%s pattern detected in %s %q", m.label, f.Source, f.Name),
					map[string]any{
						"source":        string(f.Source),
						"field":         f.Name,
						"value":         truncate(candidate),
						"decode_rounds": round,
						"matcher":       m.name,
					},
				)
				return &sig
			}
		}
	}
	return nil
}

// Candidates returns value followed by up to two URL-decoded forms. Decoding
// stops at the first malformed escape or when a round changes nothing.
func Candidates(value string) []string {
	out := []string{value}
	current := value
	for i := 0; i < maxDecodeRounds; i++ {
		decoded, err := url.QueryUnescape(current)
		if err != nil || decoded == current {
			break
		}
		out = append(out, decoded)
		current = decoded
	}
	return out
}

// CollectFields flattens a request into fields in a stable order: query,
// body, route params, then the raw path. Keys are sorted within a source.
func CollectFields(req *types.Request) []Field {
	var fields []Field
	fields = appendStringMap(fields, SourceQuery, req.Query)

	var body []Field
	flatten("", req.Body, func(name, value string) {
		body = append(body, Field{Source: SourceBody, Name: name, Value: value})
	})
	sort.SliceStable(body, func(i, j int) bool { return body[i].Name < body[j].Name })
	fields = append(fields, body...)

	fields = appendStringMap(fields, SourceParams, req.Params)
	if req.Path != "" {
		fields = append(fields, Field{Source: SourcePath, Name: "path", Value: req.Path})
	}
	return fields
}

func appendStringMap(fields []Field, src Source, m map[string]string) []Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, Field{Source: src, Name: k, Value: m[k]})
	}
	return fields
}

// flatten walks nested maps and slices, emitting string leaves under dotted
// paths such as "items.0.name". Non-string scalars carry no payload.
func flatten(prefix string, value any, emit func(name, value string)) {
	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(prefix, k), child, emit)
		}
	case []any:
		for i, child := range v {
			flatten(join(prefix, strconv.Itoa(i)), child, emit)
		}
	case []string:
		for i, child := range v {
			emit(join(prefix, strconv.Itoa(i)), child)
		}
	case string:
		emit(prefix, v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// truncate caps s at maxReportedValue bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxReportedValue {
		return s
	}
	cut := maxReportedValue - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

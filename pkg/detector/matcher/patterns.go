package matcher

import (
	"regexp"

	"github.com/NeuralTrust/ThreatGuard/pkg/types"
)

var sqlInjectionPatterns = []*regexp.Regexp{
	// ' OR 1=1, " AND 'a'='a, ' OR name LIKE '
	regexp.MustCompile(`(?i)['"]\s*(?:OR|AND)\s+(?:['"]?[\w-]+['"]?\s*=\s*['"]?[\w-]+|['"]?[\w-]+['"]?\s+LIKE\s+['"])`),
	regexp.MustCompile(`(?i)\b(?:OR|AND)\s+(\d+)\s*=\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\bUNION\s+(?:ALL\s+)?SELECT\b`),
	// stacked statements need real statement structure after the semicolon
	regexp.MustCompile(`(?i);\s*(?:DROP\s+(?:TABLE|DATABASE|SCHEMA|VIEW|INDEX)|DELETE\s+FROM|INSERT\s+INTO|UPDATE\s+[\w.` + "`" + `"\[\]]+\s+SET|ALTER\s+(?:TABLE|DATABASE|USER)|CREATE\s+(?:TABLE|DATABASE|USER|FUNCTION|PROCEDURE|TRIGGER)|TRUNCATE\s+TABLE|SHUTDOWN\s*(?:$|;|--))`),
	regexp.MustCompile(`(?i)\b(?:DROP|TRUNCATE)\s+(?:TABLE|DATABASE|SCHEMA)\b`),
	regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\s+'|\b(?:PG_)?SLEEP\s*\(\s*\d+(?:\.\d+)?\s*\)|\bBENCHMARK\s*\(\s*\d+\s*,`),
	regexp.MustCompile(`(?i)\bEXEC(?:UTE)?\s+(?:xp|sp)_\w+`),
	// quote closed then the rest of the statement commented out
	regexp.MustCompile(`['"]\s*(?:--[\s-]*$|#\s*$|/\*)`),
	// inline comments glued to keywords: UNION/**/SELECT, /*!50000SELECT*/
	regexp.MustCompile(`\w/\*.*?\*/|/\*.*?\*/\w|/\*!\d*`),
}

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script\b`),
	regexp.MustCompile(`(?i)<\s*(?:iframe|frame|frameset|object|embed|applet|base|meta)\b`),
	regexp.MustCompile(`(?i)\bon(?:error|load|unload|click|dblclick|mouseover|mouseout|mouseenter|focus|blur|submit|change|input|keydown|keyup|keypress|animationstart|toggle)\s*=`),
	regexp.MustCompile(`(?i)\b(?:java|vb)script:\S`),
	regexp.MustCompile(`(?i)\bdata\s*:\s*text/(?:html|javascript)`),
	regexp.MustCompile(`(?i)\b(?:eval|alert)\(`),
	regexp.MustCompile(`(?i)\bdocument\s*\.\s*(?:cookie|write|location)\b`),
	regexp.MustCompile(`(?i)\bexpression\(`),
}

var pathTraversalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\.[/\\]`),
	regexp.MustCompile(`[/\\]\.\.(?:$|[/\\])`),
	regexp.MustCompile(`(?i)%2e%2e(?:%2f|%5c|/|\\)|\.\.%(?:2f|5c)`),
	regexp.MustCompile(`(?i)%252e%252e|%c0%ae|%c1%9c|%uff0e`),
	regexp.MustCompile(`(?i)(?:^|[/\\])etc[/\\](?:passwd|shadow|group|hosts)\b`),
	regexp.MustCompile(`(?i)(?:^|[/\\])(?:windows|winnt)[/\\](?:system32|win\.ini)`),
	regexp.MustCompile(`(?i)(?:^|[/\\])proc[/\\]self[/\\]`),
}

// shellCommands are the binaries worth reporting after a shell separator.
// Plenty of them are also English words, so a bare name only counts when
// it ends the value or is followed by another shell operator.
const shellCommands = `(?:ls|cat|rm|wget|curl|nc|ncat|netcat|bash|sh|zsh|python[23]?|perl|ruby|php|whoami|id|uname|chmod|chown|kill|ping|nslookup|powershell|cmd(?:\.exe)?)`

var commandInjectionPatterns = []*regexp.Regexp{
	// ; cat /etc/hosts, | rm -rf, && curl $HOST
	regexp.MustCompile(`(?i)(?:;|&&?|\|\|?)\s*` + shellCommands + `\s+[-/.~$'"]`),
	// ; id, && whoami | nc
	regexp.MustCompile(`(?i)(?:;|&&|\|\|?)\s*` + shellCommands + `\s*(?:$|[;|&<>` + "`" + `])`),
	// | curl http://..., ; ping 10.0.0.1
	regexp.MustCompile(`(?i)(?:;|&&?|\|\|?)\s*(?:curl|wget|ping|nc|ncat|netcat|nslookup)\s+(?:https?://|\d{1,3}(?:\.\d{1,3}){3}\b)`),
	regexp.MustCompile("(?i)`\\s*" + shellCommands + "\\s+[-/.~$'\"][^`]*`|`\\s*(?:whoami|uname)\\s*`"),
	regexp.MustCompile(`(?i)\$\(\s*(?:` + shellCommands + `\b|/)[^)]*\)`),
	regexp.MustCompile(`(?i)(?:^|[\s;|&])/bin/(?:ba|z|da)?sh\b`),
	regexp.MustCompile(`(?i)\b(?:nc|ncat|netcat)\s+-[elvp]`),
	regexp.MustCompile(`(?i)\b(?:shell_exec|passthru|popen|proc_open)\s*\(|\bsystem\s*\(\s*['"$]`),
}

func NewSQLInjectionMatcher() Matcher {
	return &patternMatcher{
		name:     "sql_injection",
		kind:     types.SQLInjection,
		severity: types.Critical,
		label:    "SQL injection",
		patterns: sqlInjectionPatterns,
	}
}

func NewXSSMatcher() Matcher {
	return &patternMatcher{
		name:     "xss",
		kind:     types.XSSAttempt,
		severity: types.High,
		label:    "cross-site scripting",
		patterns: xssPatterns,
	}
}

// NewPathTraversalMatcher also inspects the raw request path.
func NewPathTraversalMatcher() Matcher {
	return &patternMatcher{
		name:     "path_traversal",
		kind:     types.PathTraversal,
		severity: types.High,
		label:    "path traversal",
		patterns: pathTraversalPatterns,
		sources: map[Source]bool{
			SourceQuery:  true,
			SourceBody:   true,
			SourceParams: true,
			SourcePath:   true,
		},
	}
}

func NewCommandInjectionMatcher() Matcher {
	return &patternMatcher{
		name:     "command_injection",
		kind:     types.CommandInjection,
		severity: types.Critical,
		label:    "command injection",
		patterns: commandInjectionPatterns,
	}
}

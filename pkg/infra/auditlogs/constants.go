package auditlogs

const (
	CategoryRunTimeSecurity = "runtime_security"
)

const redacted = "[REDACTED]"

// sensitiveHeaders are always redacted, whatever the configuration says.
var sensitiveHeaders = []string{
	"authorization",
	"cookie",
	"x-api-key",
}

package response

import (
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/detector/block"
)

type BlockStatusOutput struct {
	Subject   string     `json:"subject"`
	Key       string     `json:"key"`
	Blocked   bool       `json:"blocked"`
	Permanent bool       `json:"permanent"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func NewBlockStatusOutput(subject block.Subject, key string, status block.Status) BlockStatusOutput {
	out := BlockStatusOutput{
		Subject:   string(subject),
		Key:       key,
		Blocked:   status.Blocked,
		Permanent: status.Permanent,
	}
	if status.Blocked && !status.Permanent {
		expiresAt := status.ExpiresAt.UTC()
		out.ExpiresAt = &expiresAt
	}
	return out
}

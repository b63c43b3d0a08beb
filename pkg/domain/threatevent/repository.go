package threatevent

import "context"

type Repository interface {
	Save(ctx context.Context, evt *ThreatEvent) error
}

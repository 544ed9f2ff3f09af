package port

import (
	"context"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// EvidenceGateway looks up external reputation data for a domain. It never
// returns an error: failures and timeouts yield Evidence with Available=false.
type EvidenceGateway interface {
	Lookup(ctx context.Context, domain string, deadline time.Time) model.Evidence
}

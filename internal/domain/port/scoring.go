package port

import (
	"context"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// ScoringModel is an opaque phishing classifier. Score returns the
// probability in [0,1] that the URL is malicious. Implementations must honour
// ctx cancellation; the ensemble measures latency itself.
type ScoringModel interface {
	Name() string
	Score(ctx context.Context, req model.URLRequest, features model.FeatureSet) (float64, error)
}

package usecase

import (
	"context"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Decider produces verdicts. DecisionEngine is the production implementation.
type Decider interface {
	Decide(ctx context.Context, req model.URLRequest) (*model.Verdict, error)
}

// DomainEvaluator assesses the trust of a host.
type DomainEvaluator interface {
	Evaluate(ctx context.Context, host string) model.TrustAssessment
}

// FeatureSource extracts URL features.
type FeatureSource interface {
	Extract(rawURL string) (model.FeatureSet, error)
}

// CacheInvalidator drops cached verdicts.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, fps ...valueobject.Fingerprint) error
}

// ModelReporter reports the ensemble's per-model status.
type ModelReporter interface {
	Status() []service.ModelStatusReport
}

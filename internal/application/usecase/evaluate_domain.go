package usecase

import (
	"context"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/domain/model"
)

// EvaluateDomain is the use case for a standalone domain trust lookup.
type EvaluateDomain struct {
	evaluator DomainEvaluator
}

// NewEvaluateDomain creates a new EvaluateDomain use case.
func NewEvaluateDomain(evaluator DomainEvaluator) *EvaluateDomain {
	return &EvaluateDomain{evaluator: evaluator}
}

// Execute accepts a bare domain or a URL and assesses its host.
func (uc *EvaluateDomain) Execute(ctx context.Context, domain string) (dto.TrustResponse, error) {
	_, host, err := model.NormalizeURL(domain)
	if err != nil {
		return dto.TrustResponse{}, err
	}
	return dto.FromTrust(uc.evaluator.Evaluate(ctx, host)), nil
}

// ExtractFeatures is the use case for the feature inspection endpoint.
type ExtractFeatures struct {
	source FeatureSource
}

// NewExtractFeatures creates a new ExtractFeatures use case.
func NewExtractFeatures(source FeatureSource) *ExtractFeatures {
	return &ExtractFeatures{source: source}
}

// Execute returns the feature set and its numeric vector.
func (uc *ExtractFeatures) Execute(rawURL string) (dto.FeaturesResponse, error) {
	normalized, _, err := model.NormalizeURL(rawURL)
	if err != nil {
		return dto.FeaturesResponse{}, err
	}
	f, err := uc.source.Extract(normalized)
	if err != nil {
		return dto.FeaturesResponse{}, err
	}
	return dto.FeaturesResponse{URL: normalized, Features: f, Vector: f.Vector()}, nil
}

// GetModelStatus is the use case for the ensemble status report.
type GetModelStatus struct {
	reporter ModelReporter
}

// NewGetModelStatus creates a new GetModelStatus use case.
func NewGetModelStatus(reporter ModelReporter) *GetModelStatus {
	return &GetModelStatus{reporter: reporter}
}

// Execute reports every registered model. The ensemble is healthy while at
// least one model's last call succeeded or it has not been called yet.
func (uc *GetModelStatus) Execute() dto.ModelStatusResponse {
	models := uc.reporter.Status()
	resp := dto.ModelStatusResponse{Models: models}
	for _, m := range models {
		resp.TotalWeight += m.Weight
		if m.LastStatus == "" || m.LastStatus == string(model.ModelStatusOK) {
			resp.Healthy = true
		}
	}
	return resp
}

package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// ScanRequest is the input DTO for a single URL scan. UseTrustSystem
// defaults to true when omitted.
type ScanRequest struct {
	UseTrustSystem  *bool  `json:"use_trust_system,omitempty"`
	URL             string `json:"url"`
	IncludeFeatures bool   `json:"include_features"`
	StrictMode      bool   `json:"strict_mode"`
}

// Options converts the request flags into domain request options.
func (r ScanRequest) Options() model.RequestOptions {
	useTrust := true
	if r.UseTrustSystem != nil {
		useTrust = *r.UseTrustSystem
	}
	return model.RequestOptions{
		IncludeFeatures: r.IncludeFeatures,
		StrictMode:      r.StrictMode,
		UseTrustSystem:  useTrust,
	}
}

// ModelScoreResponse is one model's contribution to a verdict.
type ModelScoreResponse struct {
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	Error           string  `json:"error,omitempty"`
	Probability     float64 `json:"probability"`
	Weight          float64 `json:"weight"`
	EffectiveWeight float64 `json:"effective_weight"`
	LatencyMS       float64 `json:"latency_ms"`
}

// VerdictResponse is the output DTO for a scan.
type VerdictResponse struct {
	ComputedAt     time.Time            `json:"computed_at"`
	Trust          *TrustResponse       `json:"trust,omitempty"`
	Features       *model.FeatureSet    `json:"features,omitempty"`
	URL            string               `json:"url"`
	Status         string               `json:"status"`
	RiskLevel      string               `json:"risk_level"`
	Recommendation string               `json:"recommendation"`
	ModelScores    []ModelScoreResponse `json:"model_scores"`
	Warnings       []string             `json:"warnings"`
	AppliedRules   []string             `json:"applied_rules"`
	Probability    float64              `json:"probability"`
	Confidence     float64              `json:"confidence"`
	ThresholdUsed  float64              `json:"threshold_used"`
	ElapsedMS      float64              `json:"elapsed_ms"`
	ID             uuid.UUID            `json:"id"`
	IsPhishing     bool                 `json:"is_phishing"`
	StrictMode     bool                 `json:"strict_mode"`
	Cached         bool                 `json:"cached"`
}

// FromVerdict maps a domain verdict to the response DTO.
func FromVerdict(v *model.Verdict) VerdictResponse {
	scores := v.ModelScores()
	out := VerdictResponse{
		ID:             v.ID(),
		URL:            v.URL(),
		IsPhishing:     v.IsPhishing(),
		Status:         v.Status().String(),
		RiskLevel:      v.RiskLevel().String(),
		Probability:    v.Probability(),
		Confidence:     v.Confidence(),
		ThresholdUsed:  v.ThresholdUsed(),
		StrictMode:     v.StrictMode(),
		Recommendation: v.Recommendation(),
		Warnings:       nonNil(v.Warnings()),
		AppliedRules:   nonNil(v.AppliedRules()),
		ModelScores:    make([]ModelScoreResponse, 0, len(scores)),
		Features:       v.Features(),
		ElapsedMS:      millis(v.Elapsed()),
		ComputedAt:     v.ComputedAt(),
		Cached:         v.Cached(),
	}
	for _, s := range scores {
		out.ModelScores = append(out.ModelScores, ModelScoreResponse{
			Name:            s.Name,
			Status:          string(s.Status),
			Error:           s.Error,
			Probability:     s.Probability,
			Weight:          s.Weight,
			EffectiveWeight: s.EffectiveWeight,
			LatencyMS:       millis(s.Latency),
		})
	}
	if t := v.Trust(); t != nil {
		tr := FromTrust(*t)
		out.Trust = &tr
	}
	return out
}

// QuickScanResponse is the reduced output DTO of a quick scan.
type QuickScanResponse struct {
	URL         string  `json:"url"`
	RiskLevel   string  `json:"risk_level"`
	Probability float64 `json:"probability"`
	IsPhishing  bool    `json:"is_phishing"`
}

// BatchScanRequest is the input DTO for a batch scan.
type BatchScanRequest struct {
	UseTrustSystem  *bool    `json:"use_trust_system,omitempty"`
	URLs            []string `json:"urls"`
	IncludeFeatures bool     `json:"include_features"`
	StrictMode      bool     `json:"strict_mode"`
}

// ScanFailure records a URL that could not be scanned.
type ScanFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchScanResponse is the output DTO for a batch scan. Results keep the
// order of the submitted URLs, skipping failures.
type BatchScanResponse struct {
	Results        []VerdictResponse `json:"results"`
	Failed         []ScanFailure     `json:"failed"`
	Total          int               `json:"total"`
	PhishingCount  int               `json:"phishing_count"`
	SafeCount      int               `json:"safe_count"`
	ProcessingTime float64           `json:"processing_time_ms"`
}

// WebpageScanRequest is the input DTO for a webpage link scan.
type WebpageScanRequest struct {
	URL      string `json:"url"`
	MaxLinks int    `json:"max_links"`
}

// WebpageScanResponse is the output DTO for a webpage link scan.
type WebpageScanResponse struct {
	Page          VerdictResponse   `json:"page"`
	Links         []VerdictResponse `json:"links"`
	Failed        []ScanFailure     `json:"failed"`
	LinksFound    int               `json:"links_found"`
	PhishingLinks int               `json:"phishing_links"`
	OverallRisk   string            `json:"overall_risk"`
}

// FeaturesResponse is the output DTO of feature extraction.
type FeaturesResponse struct {
	URL      string             `json:"url"`
	Features model.FeatureSet   `json:"features"`
	Vector   map[string]float64 `json:"vector"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

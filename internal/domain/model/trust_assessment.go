package model

import "github.com/bibbank/phishguard/internal/domain/valueobject"

// TrustAssessment is the Domain Trust Evaluator's view of a registrable domain.
// Score always lies inside Tier's sub-range.
type TrustAssessment struct {
	Domain             string                `json:"domain"`
	Host               string                `json:"host"`
	Tier               valueobject.TrustTier `json:"tier"`
	Score              float64               `json:"score"`
	Confidence         float64               `json:"confidence"`
	KnownSafe          bool                  `json:"known_safe"`
	IsGovernment       bool                  `json:"is_government"`
	IsEducational      bool                  `json:"is_educational"`
	KeywordMatches     []string              `json:"keyword_matches,omitempty"`
	SuspiciousPatterns []string              `json:"suspicious_patterns,omitempty"`
	Reasons            []string              `json:"reasons,omitempty"`
	Warnings           []string              `json:"warnings,omitempty"`
	Recommendation     string                `json:"recommendation"`
	Evidence           *Evidence             `json:"evidence,omitempty"`
}

// Consistent reports whether the score agrees with the tier's sub-range.
func (t TrustAssessment) Consistent() bool {
	return t.Tier.Contains(t.Score)
}

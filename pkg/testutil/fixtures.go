package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Normalized URLs shared by store and transport tests.
const (
	TestBenignURL   = "https://example.com/"
	TestPhishingURL = "http://paypa1-secure-login.tk/verify"
)

// NewVerdict builds a minimal verdict for url at level.
func NewVerdict(t *testing.T, url string, level valueobject.RiskLevel, probability float64) *model.Verdict {
	t.Helper()

	v, err := model.NewVerdict(model.VerdictParams{
		URL:            url,
		Probability:    probability,
		RiskLevel:      level,
		Confidence:     0.8,
		AppliedRules:   []string{"probability_threshold"},
		ThresholdUsed:  0.0863,
		Recommendation: "test verdict",
		ModelScores: []model.ModelScore{
			{Name: "lexical", Probability: probability, Weight: 1, EffectiveWeight: 1, Status: model.ModelStatusOK},
		},
	})
	require.NoError(t, err)
	return v
}

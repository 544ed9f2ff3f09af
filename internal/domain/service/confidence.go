package service

import (
	"math"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Confidence combines distance from the decision midpoint, agreement between
// models and trust-evaluator confidence into a value in [0, 1].
func Confidence(probability float64, scores []model.ModelScore, trust *model.TrustAssessment) float64 {
	base := math.Abs(probability-0.5) * 2 * 0.5

	var probs []float64
	for _, s := range scores {
		if s.Available() {
			probs = append(probs, s.Probability)
		}
	}
	agreement := 0.8
	if len(probs) > 1 {
		agreement = 1 - math.Min(stddev(probs)*2, 0.5)
	}

	trustConf := 0.5
	if trust != nil {
		trustConf = trust.Confidence
	}

	c := base + agreement*0.3 + trustConf*0.3
	return round4(math.Max(0, math.Min(1, c)))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return math.Sqrt(v / float64(len(xs)))
}

// Recommendation returns the user-facing advice for a verdict.
func Recommendation(level valueobject.RiskLevel, probability float64, trust *model.TrustAssessment) string {
	switch {
	case level.Equal(valueobject.RiskLevelSafe) && trust != nil && trust.KnownSafe:
		return "This is a trusted website. Safe to proceed."
	case level.Equal(valueobject.RiskLevelCritical):
		return "HIGH RISK: This URL is very likely a phishing attempt. Do NOT enter any personal information."
	case level.Equal(valueobject.RiskLevelHigh):
		return "WARNING: This URL shows signs of phishing. Proceed with extreme caution."
	case level.IsUnsafe():
		return "This URL has some suspicious characteristics. Verify the site before entering sensitive information."
	case probability < 0.05:
		return "This URL appears safe. Normal caution advised."
	default:
		return "This URL appears legitimate. Standard security practices recommended."
	}
}

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/phishguard/pkg/events"
	"github.com/bibbank/phishguard/internal/domain/event"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// VerdictParams carries everything the Decision Engine gathered for a URL.
type VerdictParams struct {
	URL            string
	Probability    float64
	RiskLevel      valueobject.RiskLevel
	Confidence     float64
	ModelScores    []ModelScore
	Trust          *TrustAssessment
	Warnings       []string
	AppliedRules   []string
	Features       *FeatureSet
	ThresholdUsed  float64
	StrictMode     bool
	Recommendation string
	Elapsed        time.Duration
}

// Verdict is the aggregate root of a URL decision. It is immutable once
// constructed; accessors return copies of slices.
type Verdict struct {
	computedAt     time.Time
	trust          *TrustAssessment
	features       *FeatureSet
	url            string
	recommendation string
	riskLevel      valueobject.RiskLevel
	status         valueobject.VerdictStatus
	modelScores    []ModelScore
	warnings       []string
	appliedRules   []string
	domainEvents   []events.DomainEvent
	probability    float64
	confidence     float64
	thresholdUsed  float64
	elapsed        time.Duration
	strictMode     bool
	cached         bool
	id             uuid.UUID
}

// NewVerdict validates params and creates a verdict, recording its domain events.
func NewVerdict(p VerdictParams) (*Verdict, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if p.Probability < 0 || p.Probability > 1 {
		return nil, fmt.Errorf("probability must be between 0 and 1, got %f", p.Probability)
	}
	if p.RiskLevel.IsZero() {
		return nil, fmt.Errorf("risk level is required")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, fmt.Errorf("confidence must be between 0 and 1, got %f", p.Confidence)
	}

	v := &Verdict{
		id:             uuid.New(),
		url:            p.URL,
		probability:    p.Probability,
		riskLevel:      p.RiskLevel,
		status:         valueobject.StatusFromRiskLevel(p.RiskLevel),
		confidence:     p.Confidence,
		modelScores:    append([]ModelScore(nil), p.ModelScores...),
		trust:          p.Trust,
		warnings:       append([]string(nil), p.Warnings...),
		appliedRules:   append([]string(nil), p.AppliedRules...),
		features:       p.Features,
		thresholdUsed:  p.ThresholdUsed,
		strictMode:     p.StrictMode,
		recommendation: p.Recommendation,
		elapsed:        p.Elapsed,
		computedAt:     time.Now().UTC(),
	}

	v.domainEvents = append(v.domainEvents, event.NewVerdictComputed(
		v.id, v.url, v.riskLevel.String(), v.status.String(),
		v.probability, v.confidence, v.appliedRules, v.computedAt,
	))
	if v.riskLevel.Equal(valueobject.RiskLevelCritical) {
		v.domainEvents = append(v.domainEvents, event.NewCriticalURLDetected(
			v.id, v.url, v.trustDomain(), v.probability, v.warnings, v.computedAt,
		))
	}

	return v, nil
}

// AsCached returns a copy flagged as served from the result cache.
func (v *Verdict) AsCached() *Verdict {
	c := *v
	c.cached = true
	c.domainEvents = nil
	return &c
}

// WithoutFeatures returns a copy with the feature set removed.
func (v *Verdict) WithoutFeatures() *Verdict {
	if v.features == nil {
		return v
	}
	c := *v
	c.features = nil
	c.domainEvents = nil
	return &c
}

func (v *Verdict) trustDomain() string {
	if v.trust == nil {
		return ""
	}
	return v.trust.Domain
}

// --- Accessors ---

func (v *Verdict) ID() uuid.UUID                        { return v.id }
func (v *Verdict) URL() string                          { return v.url }
func (v *Verdict) Probability() float64                 { return v.probability }
func (v *Verdict) RiskLevel() valueobject.RiskLevel     { return v.riskLevel }
func (v *Verdict) Status() valueobject.VerdictStatus    { return v.status }
func (v *Verdict) Confidence() float64                  { return v.confidence }
func (v *Verdict) Trust() *TrustAssessment              { return v.trust }
func (v *Verdict) Features() *FeatureSet                { return v.features }
func (v *Verdict) ThresholdUsed() float64               { return v.thresholdUsed }
func (v *Verdict) StrictMode() bool                     { return v.strictMode }
func (v *Verdict) Recommendation() string               { return v.recommendation }
func (v *Verdict) Elapsed() time.Duration               { return v.elapsed }
func (v *Verdict) ComputedAt() time.Time                { return v.computedAt }
func (v *Verdict) Cached() bool                         { return v.cached }
func (v *Verdict) IsPhishing() bool                     { return v.riskLevel.IsUnsafe() }
func (v *Verdict) ModelScores() []ModelScore            { return append([]ModelScore(nil), v.modelScores...) }
func (v *Verdict) Warnings() []string                   { return append([]string(nil), v.warnings...) }
func (v *Verdict) AppliedRules() []string               { return append([]string(nil), v.appliedRules...) }

// DomainEvents returns all accumulated domain events and clears them.
func (v *Verdict) DomainEvents() []events.DomainEvent {
	evts := v.domainEvents
	v.domainEvents = nil
	return evts
}

// verdictJSON is the storage and cache encoding of a Verdict.
type verdictJSON struct {
	ID             uuid.UUID                 `json:"id"`
	URL            string                    `json:"url"`
	Probability    float64                   `json:"probability"`
	RiskLevel      valueobject.RiskLevel     `json:"risk_level"`
	Status         valueobject.VerdictStatus `json:"status"`
	Confidence     float64                   `json:"confidence"`
	ModelScores    []ModelScore              `json:"model_scores"`
	Trust          *TrustAssessment          `json:"trust,omitempty"`
	Warnings       []string                  `json:"warnings"`
	AppliedRules   []string                  `json:"applied_rules"`
	Features       *FeatureSet               `json:"features,omitempty"`
	ThresholdUsed  float64                   `json:"threshold_used"`
	StrictMode     bool                      `json:"strict_mode"`
	Recommendation string                    `json:"recommendation"`
	ElapsedNanos   int64                     `json:"elapsed_ns"`
	ComputedAt     time.Time                 `json:"computed_at"`
}

// MarshalJSON implements json.Marshaler.
func (v *Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(verdictJSON{
		ID:             v.id,
		URL:            v.url,
		Probability:    v.probability,
		RiskLevel:      v.riskLevel,
		Status:         v.status,
		Confidence:     v.confidence,
		ModelScores:    v.modelScores,
		Trust:          v.trust,
		Warnings:       v.warnings,
		AppliedRules:   v.appliedRules,
		Features:       v.features,
		ThresholdUsed:  v.thresholdUsed,
		StrictMode:     v.strictMode,
		Recommendation: v.recommendation,
		ElapsedNanos:   int64(v.elapsed),
		ComputedAt:     v.computedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoding reconstructs the
// verdict without recording events.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	var j verdictJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*v = Verdict{
		id:             j.ID,
		url:            j.URL,
		probability:    j.Probability,
		riskLevel:      j.RiskLevel,
		status:         j.Status,
		confidence:     j.Confidence,
		modelScores:    j.ModelScores,
		trust:          j.Trust,
		warnings:       j.Warnings,
		appliedRules:   j.AppliedRules,
		features:       j.Features,
		thresholdUsed:  j.ThresholdUsed,
		strictMode:     j.StrictMode,
		recommendation: j.Recommendation,
		elapsed:        time.Duration(j.ElapsedNanos),
		computedAt:     j.ComputedAt,
	}
	return nil
}

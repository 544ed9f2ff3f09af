package service

import (
	"fmt"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Thresholds are the probability boundaries that map an ensemble probability
// onto a risk level. Phishing splits safe from unsafe; the rest subdivide the
// unsafe range.
type Thresholds struct {
	Phishing float64 `yaml:"phishing"`
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// DefaultThresholds returns the precision-tuned default boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Phishing: 0.0863, Medium: 0.3, High: 0.6, Critical: 0.85}
}

// DefaultStrictThresholds returns the lower boundaries used in strict mode.
func DefaultStrictThresholds() Thresholds {
	return Thresholds{Phishing: 0.05, Medium: 0.2, High: 0.45, Critical: 0.7}
}

// Validate checks 0 < Phishing < Medium < High < Critical <= 1.
func (t Thresholds) Validate() error {
	if t.Phishing <= 0 || t.Critical > 1 {
		return fmt.Errorf("%w: boundaries must lie in (0,1], got %+v", model.ErrInvalidThresholds, t)
	}
	if !(t.Phishing < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("%w: boundaries must be strictly increasing, got %+v", model.ErrInvalidThresholds, t)
	}
	return nil
}

// Map returns the risk level for probability p.
func (t Thresholds) Map(p float64) valueobject.RiskLevel {
	switch {
	case p >= t.Critical:
		return valueobject.RiskLevelCritical
	case p >= t.High:
		return valueobject.RiskLevelHigh
	case p >= t.Medium:
		return valueobject.RiskLevelMedium
	case p >= t.Phishing:
		return valueobject.RiskLevelLow
	default:
		return valueobject.RiskLevelSafe
	}
}

// RulePolicy holds every tunable the rule engine reads.
type RulePolicy struct {
	Default              Thresholds `yaml:"thresholds"`
	Strict               Thresholds `yaml:"strict_thresholds"`
	TrustOverrideCeiling float64    `yaml:"trust_override_ceiling"`
	MaxSubdomains        int        `yaml:"max_subdomains"`
}

// DefaultRulePolicy returns the built-in policy.
func DefaultRulePolicy() RulePolicy {
	return RulePolicy{
		Default:              DefaultThresholds(),
		Strict:               DefaultStrictThresholds(),
		TrustOverrideCeiling: 0.5,
		MaxSubdomains:        3,
	}
}

// Validate checks both threshold sets and the scalar limits.
func (p RulePolicy) Validate() error {
	if err := p.Default.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := p.Strict.Validate(); err != nil {
		return fmt.Errorf("strict thresholds: %w", err)
	}
	if p.TrustOverrideCeiling <= 0 || p.TrustOverrideCeiling > 1 {
		return fmt.Errorf("%w: trust override ceiling must lie in (0,1], got %f",
			model.ErrInvalidThresholds, p.TrustOverrideCeiling)
	}
	if p.MaxSubdomains < 0 {
		return fmt.Errorf("%w: max subdomains must not be negative", model.ErrInvalidThresholds)
	}
	return nil
}

// For returns the threshold set selected by strict.
func (p RulePolicy) For(strict bool) Thresholds {
	if strict {
		return p.Strict
	}
	return p.Default
}

package service

import (
	"fmt"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

// Rule names recorded on verdicts.
const (
	RuleProbabilityThreshold  = "probability_threshold"
	RuleDangerousDomain       = "dangerous_domain"
	RuleTrustedDomainOverride = "trusted_domain_override"
	RuleIPLiteralHost         = "ip_literal_host"
	RulePunycodeHost          = "punycode_host"
	RuleExcessiveSubdomains   = "excessive_subdomains"
)

// RuleInput is everything the rule engine looks at. Trust is nil when the
// trust system is disabled or unavailable.
type RuleInput struct {
	Probability float64
	Features    model.FeatureSet
	Trust       *model.TrustAssessment
	StrictMode  bool
}

// RuleOutcome is the final level with the rules that shaped it.
type RuleOutcome struct {
	Level         valueobject.RiskLevel
	ThresholdUsed float64
	AppliedRules  []string
	Warnings      []string
}

// RuleEngine applies the override rules in a fixed order. It is pure.
type RuleEngine struct {
	policy RulePolicy
}

// NewRuleEngine validates policy and creates a RuleEngine.
func NewRuleEngine(policy RulePolicy) (*RuleEngine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &RuleEngine{policy: policy}, nil
}

// Policy returns the engine's policy.
func (r *RuleEngine) Policy() RulePolicy { return r.policy }

// Apply computes the risk level for in. The probability mapping gives the
// base level; a dangerous domain forces critical and nothing lowers it; a
// highest-trust domain below the override ceiling is forced to safe; IP
// literal and punycode hosts escalate whatever level results.
func (r *RuleEngine) Apply(in RuleInput) RuleOutcome {
	th := r.policy.For(in.StrictMode)
	out := RuleOutcome{
		Level:         th.Map(in.Probability),
		ThresholdUsed: th.Phishing,
		AppliedRules:  []string{RuleProbabilityThreshold},
	}

	forcedCritical := false
	if in.Trust != nil {
		switch {
		case in.Trust.Tier.Equal(valueobject.TrustTierDangerous):
			out.Level = valueobject.RiskLevelCritical
			forcedCritical = true
			out.AppliedRules = append(out.AppliedRules, RuleDangerousDomain)
			out.Warnings = append(out.Warnings, fmt.Sprintf("domain %s is classified dangerous", in.Trust.Domain))
		case in.Trust.Tier.Equal(valueobject.TrustTierHighest) && in.Probability < r.policy.TrustOverrideCeiling:
			out.Level = valueobject.RiskLevelSafe
			out.AppliedRules = append(out.AppliedRules, RuleTrustedDomainOverride)
		}
	}

	if in.Features.HasIPHost {
		if !forcedCritical {
			out.Level = out.Level.Escalate()
		}
		out.AppliedRules = append(out.AppliedRules, RuleIPLiteralHost)
		out.Warnings = append(out.Warnings, "URL uses an IP address instead of a domain name")
	}

	if in.Features.HasPunycode {
		if !forcedCritical {
			out.Level = out.Level.Escalate()
		}
		out.AppliedRules = append(out.AppliedRules, RulePunycodeHost)
		out.Warnings = append(out.Warnings, "URL host contains punycode (possible homograph attack)")
	}

	if in.Features.SubdomainCount > r.policy.MaxSubdomains {
		out.AppliedRules = append(out.AppliedRules, RuleExcessiveSubdomains)
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("URL has %d subdomains (more than %d)", in.Features.SubdomainCount, r.policy.MaxSubdomains))
	}

	return out
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
)

var ipLikeLabel = regexp.MustCompile(`\d{1,3}-\d{1,3}-\d{1,3}`)

// tierConfidence is the evaluator's confidence in each tier assignment.
var tierConfidence = map[valueobject.TrustTier]float64{
	valueobject.TrustTierHighest:    0.98,
	valueobject.TrustTierHigh:       0.95,
	valueobject.TrustTierMedium:     0.75,
	valueobject.TrustTierLow:        0.5,
	valueobject.TrustTierSuspicious: 0.7,
	valueobject.TrustTierDangerous:  0.9,
}

// TrustEvaluator classifies a host's registrable domain into a trust tier.
type TrustEvaluator struct {
	lists         *TrustLists
	evidence      port.EvidenceGateway
	lookupTimeout time.Duration
	logger        *slog.Logger
}

// NewTrustEvaluator creates a TrustEvaluator. evidence may be nil, in which
// case only local lists and heuristics are used.
func NewTrustEvaluator(
	lists *TrustLists,
	evidence port.EvidenceGateway,
	lookupTimeout time.Duration,
	logger *slog.Logger,
) *TrustEvaluator {
	if lookupTimeout <= 0 {
		lookupTimeout = 300 * time.Millisecond
	}
	return &TrustEvaluator{
		lists:         lists,
		evidence:      evidence,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// Evaluate assesses host. Deny-list matches short-circuit; otherwise the
// external evidence lookup runs alongside the local heuristics and is merged
// if it returns before the lookup timeout.
func (e *TrustEvaluator) Evaluate(ctx context.Context, host string) model.TrustAssessment {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	ip := net.ParseIP(strings.Trim(host, "[]"))

	a := model.TrustAssessment{Host: host, Domain: host}
	tld := ""
	if ip == nil {
		a.Domain, tld = RegistrableDomain(host)
	}

	// 1. Deny-list
	if denied, ok := e.lists.IsDenied(host); ok {
		return e.finish(a, valueobject.TrustTierDangerous, 0, fmt.Sprintf("Deny-listed domain: %s", denied))
	}
	if e.lists.IsDeniedIP(ip) {
		return e.finish(a, valueobject.TrustTierDangerous, 0, fmt.Sprintf("Deny-listed address range: %s", ip))
	}

	// 2. External evidence in the background, bounded by one deadline
	var evCh chan model.Evidence
	lookupCtx := ctx
	if e.evidence != nil && ip == nil {
		deadline := time.Now().Add(e.lookupTimeout)
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()

		evCh = make(chan model.Evidence, 1)
		go func() {
			evCh <- e.evidence.Lookup(lookupCtx, a.Domain, deadline)
		}()
	}

	// 3. Local classification
	tier, adj, reason := e.classify(&a, host, tld, ip)

	// 4. Join evidence
	if evCh != nil {
		select {
		case ev := <-evCh:
			if !ev.Available {
				a.Warnings = append(a.Warnings, "external evidence unavailable")
				a.Warnings = append(a.Warnings, ev.Warnings...)
				break
			}
			a.Evidence = &ev
			a.Warnings = append(a.Warnings, ev.Warnings...)
			if ev.SafeBrowsingMatch {
				tier = valueobject.TrustTierDangerous
				adj = 0
				reason = fmt.Sprintf("Safe Browsing match: %s", strings.Join(ev.ThreatTypes, ", "))
				break
			}
			adj -= ev.RiskAdjustment
		case <-lookupCtx.Done():
			if ctx.Err() != nil {
				a.Warnings = append(a.Warnings, "external evidence unavailable: request cancelled")
				break
			}
			a.Warnings = append(a.Warnings, "external evidence unavailable: timeout")
			e.logger.Warn("evidence lookup timed out", "domain", a.Domain, "timeout", e.lookupTimeout)
		}
	}

	return e.finish(a, tier, adj, reason)
}

// classify runs the allow-list and local heuristics. It returns the tier,
// a score adjustment relative to the tier midpoint and the primary reason.
func (e *TrustEvaluator) classify(a *model.TrustAssessment, host, tld string, ip net.IP) (valueobject.TrustTier, float64, string) {
	l := e.lists
	domain := a.Domain
	label := strings.TrimSuffix(domain, "."+tld)
	subdomain := strings.TrimSuffix(strings.TrimSuffix(host, domain), ".")

	a.IsGovernment = l.IsGovernmentDomain(domain) || l.HasGovernmentSuffix(host)
	if a.IsGovernment {
		a.Reasons = append(a.Reasons, "Government domain detected")
	}
	a.IsEducational = l.HasEducationalSuffix(host)
	if a.IsEducational {
		a.Reasons = append(a.Reasons, "Educational domain detected")
	}

	var adj float64
	for _, kw := range l.HighTrustKeywords() {
		if strings.Contains(label, kw) {
			a.KeywordMatches = append(a.KeywordMatches, kw)
			adj += 0.05
		}
	}
	for _, kw := range l.MediumTrustKeywords() {
		if strings.Contains(host, kw) && !containsString(a.KeywordMatches, kw) {
			a.KeywordMatches = append(a.KeywordMatches, kw)
			adj += 0.025
		}
	}
	if tld != "" {
		if penalty, ok := l.SuspiciousTLDPenalty(tld); ok {
			adj -= penalty / 2
		} else if l.IsTrustedTLD(tld) {
			adj += 0.025
		}
	}

	// Allow-list
	switch {
	case l.IsTopSite(domain):
		a.KnownSafe = true
		return valueobject.TrustTierHighest, adj, fmt.Sprintf("Top global website: %s", domain)
	case l.IsTrusted(domain):
		a.KnownSafe = true
		return valueobject.TrustTierHigh, adj, fmt.Sprintf("Trusted domain: %s", domain)
	}

	// Heuristics
	if ip != nil {
		a.SuspiciousPatterns = append(a.SuspiciousPatterns, "ip-literal-host")
		return valueobject.TrustTierSuspicious, adj, "IP address used as host"
	}

	var substrings []string
	for _, s := range l.PhishingSubstrings() {
		if strings.Contains(host, s) {
			substrings = append(substrings, s)
		}
	}
	if len(substrings) > 0 {
		a.SuspiciousPatterns = append(a.SuspiciousPatterns, substrings...)
		return valueobject.TrustTierDangerous, -0.05 * float64(len(substrings)),
			fmt.Sprintf("Phishing substrings in host: %s", strings.Join(firstN(substrings, 3), ", "))
	}

	patterns := e.suspiciousPatterns(host, domain, label, subdomain, tld)
	if len(patterns) > 0 {
		a.SuspiciousPatterns = append(a.SuspiciousPatterns, patterns...)
		return valueobject.TrustTierSuspicious, adj - 0.02*float64(len(patterns)),
			"Domain shows suspicious patterns"
	}

	if l.IsMedium(domain) {
		return valueobject.TrustTierMedium, adj, fmt.Sprintf("Popular domain: %s", domain)
	}
	return valueobject.TrustTierLow, adj, fmt.Sprintf("Unknown domain: %s", domain)
}

func (e *TrustEvaluator) suspiciousPatterns(host, domain, label, subdomain, tld string) []string {
	l := e.lists
	var out []string

	if n := strings.Count(label, "-"); n > l.MaxHyphens() {
		out = append(out, fmt.Sprintf("excessive-hyphens (%d)", n))
	}

	var brand string
	for _, kw := range l.HighTrustKeywords() {
		if strings.Contains(host, kw) {
			brand = kw
			break
		}
	}
	if brand != "" && strings.Contains(subdomain, brand) && !strings.Contains(label, brand) {
		out = append(out, fmt.Sprintf("brand-in-subdomain (%s)", brand))
	}

	if len(subdomain) > l.MaxSubdomainLength() {
		out = append(out, "long-subdomain")
	}
	if ipLikeLabel.MatchString(host) {
		out = append(out, "ip-like-domain")
	}
	if hasPunycodeLabel(host) {
		out = append(out, "punycode-domain")
	}
	if _, ok := l.SuspiciousTLDPenalty(tld); ok {
		out = append(out, fmt.Sprintf("suspicious-tld (.%s)", tld))
	}
	if n := SubdomainCount(host, domain); n > l.MaxSubdomainLabels() {
		out = append(out, fmt.Sprintf("excessive-subdomains (%d)", n))
	}
	if brand != "" {
		for _, kw := range l.SuspiciousKeywords() {
			if strings.Contains(host, kw) {
				out = append(out, fmt.Sprintf("brand-with-suspicious-keyword (%s+%s)", brand, kw))
				break
			}
		}
	}

	return out
}

// finish places the score inside the tier and fills the derived fields.
func (e *TrustEvaluator) finish(a model.TrustAssessment, tier valueobject.TrustTier, adj float64, reason string) model.TrustAssessment {
	a.Tier = tier
	a.Score = round4(tier.Clamp(tier.Midpoint() + adj))
	a.Confidence = tierConfidence[tier]
	if reason != "" {
		a.Reasons = append([]string{reason}, a.Reasons...)
	}
	a.Recommendation = TrustRecommendation(tier, a.SuspiciousPatterns)
	return a
}

// TrustRecommendation returns the human-readable advice for a tier.
func TrustRecommendation(tier valueobject.TrustTier, patterns []string) string {
	switch tier {
	case valueobject.TrustTierHighest:
		return "This domain is highly trusted. Safe to proceed."
	case valueobject.TrustTierHigh:
		return "This domain has a good reputation. Exercise standard caution."
	case valueobject.TrustTierMedium:
		return "This domain has moderate trust. Verify before entering sensitive information."
	case valueobject.TrustTierLow:
		return "This domain is unknown. Be cautious with any sensitive actions."
	case valueobject.TrustTierSuspicious:
		if len(patterns) == 0 {
			return "This domain shows suspicious patterns. Avoid entering personal information."
		}
		return fmt.Sprintf("This domain shows suspicious patterns: %s. Avoid entering personal information.",
			strings.Join(firstN(patterns, 2), ", "))
	default:
		return "This domain appears dangerous. Do not proceed or enter any information."
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstN(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

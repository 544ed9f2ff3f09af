package service

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/yl2chen/cidranger"
)

// TrustListsConfig is the raw, process-wide list data. It is loaded once at
// startup and compiled into an immutable TrustLists.
type TrustListsConfig struct {
	TopSites            []string           `yaml:"top_sites"`
	TrustedDomains      []string           `yaml:"trusted_domains"`
	MediumDomains       []string           `yaml:"medium_domains"`
	DenyDomains         []string           `yaml:"deny_domains"`
	DenyCIDRs           []string           `yaml:"deny_cidrs"`
	GovernmentDomains   []string           `yaml:"government_domains"`
	GovernmentSuffixes  []string           `yaml:"government_suffixes"`
	EducationalSuffixes []string           `yaml:"educational_suffixes"`
	TrustedTLDs         []string           `yaml:"trusted_tlds"`
	SuspiciousTLDs      map[string]float64 `yaml:"suspicious_tlds"` // TLD without dot -> score penalty
	HighTrustKeywords   []string           `yaml:"high_trust_keywords"`
	MediumTrustKeywords []string           `yaml:"medium_trust_keywords"`
	SuspiciousKeywords  []string           `yaml:"suspicious_keywords"`
	PhishingSubstrings  []string           `yaml:"phishing_substrings"`
	MaxSubdomainLabels  int                `yaml:"max_subdomain_labels"`
	MaxHyphens          int                `yaml:"max_hyphens"`
	MaxSubdomainLength  int                `yaml:"max_subdomain_length"`
}

// TrustLists is the compiled, read-only form of TrustListsConfig. A single
// instance is shared by reference across the extractor and the evaluator.
type TrustLists struct {
	topSites            map[string]struct{}
	trusted             map[string]struct{}
	medium              map[string]struct{}
	deny                map[string]struct{}
	government          map[string]struct{}
	trustedTLDs         map[string]struct{}
	suspiciousTLDs      map[string]float64
	denyRanges          cidranger.Ranger
	governmentSuffixes  []string
	educationalSuffixes []string
	highTrustKeywords   []string
	mediumTrustKeywords []string
	suspiciousKeywords  []string
	phishingSubstrings  []string
	maxSubdomainLabels  int
	maxHyphens          int
	maxSubdomainLength  int
}

// NewTrustLists compiles cfg. Domains are lowercased and stripped of a
// leading "www." or "."; CIDRs must parse.
func NewTrustLists(cfg TrustListsConfig) (*TrustLists, error) {
	l := &TrustLists{
		topSites:            toSet(cfg.TopSites),
		trusted:             toSet(cfg.TrustedDomains),
		medium:              toSet(cfg.MediumDomains),
		deny:                toSet(cfg.DenyDomains),
		government:          toSet(cfg.GovernmentDomains),
		trustedTLDs:         toSet(cfg.TrustedTLDs),
		suspiciousTLDs:      make(map[string]float64, len(cfg.SuspiciousTLDs)),
		denyRanges:          cidranger.NewPCTrieRanger(),
		governmentSuffixes:  normalizeSuffixes(cfg.GovernmentSuffixes),
		educationalSuffixes: normalizeSuffixes(cfg.EducationalSuffixes),
		highTrustKeywords:   lowerAll(cfg.HighTrustKeywords),
		mediumTrustKeywords: lowerAll(cfg.MediumTrustKeywords),
		suspiciousKeywords:  lowerAll(cfg.SuspiciousKeywords),
		phishingSubstrings:  lowerAll(cfg.PhishingSubstrings),
		maxSubdomainLabels:  cfg.MaxSubdomainLabels,
		maxHyphens:          cfg.MaxHyphens,
		maxSubdomainLength:  cfg.MaxSubdomainLength,
	}

	for tld, penalty := range cfg.SuspiciousTLDs {
		if penalty < 0 || penalty > 1 {
			return nil, fmt.Errorf("suspicious tld %q: penalty must be in [0,1], got %f", tld, penalty)
		}
		l.suspiciousTLDs[normalizeDomain(tld)] = penalty
	}

	for _, c := range cfg.DenyCIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return nil, fmt.Errorf("deny cidr %q: %w", c, err)
		}
		if err := l.denyRanges.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			return nil, fmt.Errorf("deny cidr %q: %w", c, err)
		}
	}

	if l.maxSubdomainLabels <= 0 {
		l.maxSubdomainLabels = 3
	}
	if l.maxHyphens <= 0 {
		l.maxHyphens = 2
	}
	if l.maxSubdomainLength <= 0 {
		l.maxSubdomainLength = 30
	}

	return l, nil
}

// IsTopSite reports an explicit highest-trust allow-list match.
func (l *TrustLists) IsTopSite(domain string) bool { return has(l.topSites, domain) }

// IsTrusted reports an explicit curated allow-list match.
func (l *TrustLists) IsTrusted(domain string) bool { return has(l.trusted, domain) }

// IsMedium reports a popularity-list match.
func (l *TrustLists) IsMedium(domain string) bool { return has(l.medium, domain) }

// IsGovernmentDomain reports an explicit government-domain match.
func (l *TrustLists) IsGovernmentDomain(domain string) bool { return has(l.government, domain) }

// IsTrustedTLD reports whether tld earns the small trusted-TLD bonus.
func (l *TrustLists) IsTrustedTLD(tld string) bool { return has(l.trustedTLDs, tld) }

// IsDenied reports whether host or any of its parent domains is deny-listed.
func (l *TrustLists) IsDenied(host string) (string, bool) {
	host = normalizeDomain(host)
	for {
		if has(l.deny, host) {
			return host, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return "", false
		}
		host = host[i+1:]
	}
}

// IsDeniedIP reports whether ip falls in a deny-listed range.
func (l *TrustLists) IsDeniedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	ok, err := l.denyRanges.Contains(ip)
	return err == nil && ok
}

// SuspiciousTLDPenalty returns the penalty for tld and whether it is listed.
// Both the full public suffix ("co.tk") and its last label are checked.
func (l *TrustLists) SuspiciousTLDPenalty(tld string) (float64, bool) {
	tld = normalizeDomain(tld)
	if p, ok := l.suspiciousTLDs[tld]; ok {
		return p, true
	}
	if i := strings.LastIndexByte(tld, '.'); i >= 0 {
		p, ok := l.suspiciousTLDs[tld[i+1:]]
		return p, ok
	}
	return 0, false
}

// SuspiciousTLDs returns the listed TLDs in sorted order.
func (l *TrustLists) SuspiciousTLDs() []string {
	out := make([]string, 0, len(l.suspiciousTLDs))
	for tld := range l.suspiciousTLDs {
		out = append(out, tld)
	}
	sort.Strings(out)
	return out
}

// HasGovernmentSuffix reports whether domain ends in a government suffix.
func (l *TrustLists) HasGovernmentSuffix(domain string) bool {
	return hasSuffix(domain, l.governmentSuffixes)
}

// HasEducationalSuffix reports whether domain ends in an educational suffix.
func (l *TrustLists) HasEducationalSuffix(domain string) bool {
	return hasSuffix(domain, l.educationalSuffixes)
}

func (l *TrustLists) HighTrustKeywords() []string   { return l.highTrustKeywords }
func (l *TrustLists) MediumTrustKeywords() []string { return l.mediumTrustKeywords }
func (l *TrustLists) SuspiciousKeywords() []string  { return l.suspiciousKeywords }
func (l *TrustLists) PhishingSubstrings() []string  { return l.phishingSubstrings }
func (l *TrustLists) MaxSubdomainLabels() int       { return l.maxSubdomainLabels }
func (l *TrustLists) MaxHyphens() int               { return l.maxHyphens }
func (l *TrustLists) MaxSubdomainLength() int       { return l.maxSubdomainLength }

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if d := normalizeDomain(it); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[normalizeDomain(key)]
	return ok
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// normalizeSuffixes returns suffixes with exactly one leading dot.
func normalizeSuffixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, "."+strings.TrimPrefix(s, "."))
	}
	return out
}

func hasSuffix(domain string, suffixes []string) bool {
	domain = "." + normalizeDomain(domain)
	for _, s := range suffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package service

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// FeatureExtractor computes the structural and lexical features of a URL.
// It performs no I/O and holds only read-only state.
type FeatureExtractor struct {
	lists *TrustLists
}

// NewFeatureExtractor creates a FeatureExtractor over the given lists.
func NewFeatureExtractor(lists *TrustLists) *FeatureExtractor {
	return &FeatureExtractor{lists: lists}
}

// Extract normalizes rawURL and computes its feature set.
func (e *FeatureExtractor) Extract(rawURL string) (model.FeatureSet, error) {
	normalized, host, err := model.NormalizeURL(rawURL)
	if err != nil {
		return model.FeatureSet{}, err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return model.FeatureSet{}, fmt.Errorf("%w: %v", model.ErrMalformedURL, err)
	}

	f := model.FeatureSet{
		Length:            len(normalized),
		PathLength:        len(u.EscapedPath()),
		QueryLength:       len(u.RawQuery),
		HasHTTPS:          u.Scheme == "https",
		HasIPHost:         net.ParseIP(host) != nil,
		HasNonDefaultPort: u.Port() != "",
		HasDoubleSlash:    strings.Contains(u.EscapedPath(), "//"),
		HasAtSymbol:       strings.Contains(normalized, "@"),
		HasEncodedChars:   strings.Contains(normalized, "%"),
		Host:              host,
		HostEntropy:       ShannonEntropy(host),
	}

	for _, r := range normalized {
		switch {
		case unicode.IsDigit(r):
			f.Digits++
		case unicode.IsLetter(r):
			f.Letters++
		default:
			f.SpecialChars++
		}
	}
	for _, r := range host {
		switch {
		case r == '-':
			f.HostHyphens++
		case unicode.IsDigit(r):
			f.HostDigits++
		}
	}

	if !f.HasIPHost {
		f.RegistrableDomain, f.TLD = RegistrableDomain(host)
		f.SubdomainCount = SubdomainCount(host, f.RegistrableDomain)
		f.HasPunycode = hasPunycodeLabel(host)
		if e.lists != nil {
			_, f.SuspiciousTLD = e.lists.SuspiciousTLDPenalty(f.TLD)
		}
	}

	if e.lists != nil {
		lower := strings.ToLower(normalized)
		for _, kw := range e.lists.SuspiciousKeywords() {
			if strings.Contains(lower, kw) {
				f.SuspiciousWords++
			}
		}
	}

	return f, nil
}

// ShannonEntropy returns the Shannon entropy in bits per character of s.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// RegistrableDomain returns the eTLD+1 of host and its public suffix. Hosts
// that are themselves a public suffix, or have no dot, are returned as-is.
func RegistrableDomain(host string) (string, string) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	suffix, _ := publicsuffix.PublicSuffix(host)
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, suffix
	}
	return domain, suffix
}

// SubdomainCount returns the number of labels in host to the left of domain.
func SubdomainCount(host, domain string) int {
	if host == domain || domain == "" {
		return 0
	}
	sub := strings.TrimSuffix(host, "."+domain)
	if sub == host || sub == "" {
		return 0
	}
	return strings.Count(sub, ".") + 1
}

// hasPunycodeLabel reports an xn-- label or any raw non-ASCII byte.
func hasPunycodeLabel(host string) bool {
	for _, label := range strings.Split(host, ".") {
		if strings.HasPrefix(label, "xn--") {
			return true
		}
	}
	for i := 0; i < len(host); i++ {
		if host[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

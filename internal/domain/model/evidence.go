package model

// Evidence is the result of external reputation, DNS and registration lookups
// for a domain. Available=false is the "no additional evidence" result and
// must never be read as a negative signal.
type Evidence struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`

	SafeBrowsingChecked bool     `json:"safe_browsing_checked"`
	SafeBrowsingMatch   bool     `json:"safe_browsing_match"`
	ThreatTypes         []string `json:"threat_types,omitempty"`

	DNSChecked bool `json:"dns_checked"`
	HasA       bool `json:"has_a_record"`
	HasMX      bool `json:"has_mx_record"`
	HasSPF     bool `json:"has_spf_record"`

	AgeChecked    bool `json:"age_checked"`
	DomainAgeDays int  `json:"domain_age_days"`

	RiskAdjustment float64  `json:"risk_adjustment"`
	Warnings       []string `json:"warnings,omitempty"`
}

// UnavailableEvidence returns the degraded result for domain.
func UnavailableEvidence(domain, reason string) Evidence {
	e := Evidence{Domain: domain}
	if reason != "" {
		e.Warnings = []string{reason}
	}
	return e
}

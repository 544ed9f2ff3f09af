package model

// FeatureSet holds the structural and lexical attributes of one URL.
// It is a value type: copies are independent and never mutated after extraction.
type FeatureSet struct {
	Length            int     `json:"length"`
	PathLength        int     `json:"path_length"`
	QueryLength       int     `json:"query_length"`
	SubdomainCount    int     `json:"subdomain_count"`
	HasIPHost         bool    `json:"has_ip_host"`
	HasPunycode       bool    `json:"has_punycode"`
	SuspiciousTLD     bool    `json:"suspicious_tld"`
	HasHTTPS          bool    `json:"has_https"`
	HostEntropy       float64 `json:"host_entropy"`
	HostHyphens       int     `json:"host_hyphens"`
	HostDigits        int     `json:"host_digits"`
	Digits            int     `json:"digits"`
	Letters           int     `json:"letters"`
	SpecialChars      int     `json:"special_chars"`
	HasEncodedChars   bool    `json:"has_encoded_chars"`
	HasNonDefaultPort bool    `json:"has_non_default_port"`
	HasDoubleSlash    bool    `json:"has_double_slash_redirect"`
	HasAtSymbol       bool    `json:"has_at_symbol"`
	SuspiciousWords   int     `json:"suspicious_keyword_count"`
	Host              string  `json:"host"`
	RegistrableDomain string  `json:"registrable_domain"`
	TLD               string  `json:"tld"`
}

// DigitRatio returns the share of digits across the whole URL.
func (f FeatureSet) DigitRatio() float64 {
	if f.Length == 0 {
		return 0
	}
	return float64(f.Digits) / float64(f.Length)
}

// SpecialCharRatio returns the share of non-alphanumeric characters.
func (f FeatureSet) SpecialCharRatio() float64 {
	if f.Length == 0 {
		return 0
	}
	return float64(f.SpecialChars) / float64(f.Length)
}

// Vector flattens the numeric features keyed by name for model clients.
func (f FeatureSet) Vector() map[string]float64 {
	return map[string]float64{
		"length":                float64(f.Length),
		"path_length":           float64(f.PathLength),
		"query_length":          float64(f.QueryLength),
		"subdomain_count":       float64(f.SubdomainCount),
		"has_ip_host":           boolFloat(f.HasIPHost),
		"has_punycode":          boolFloat(f.HasPunycode),
		"suspicious_tld":        boolFloat(f.SuspiciousTLD),
		"has_https":             boolFloat(f.HasHTTPS),
		"host_entropy":          f.HostEntropy,
		"host_hyphens":          float64(f.HostHyphens),
		"host_digits":           float64(f.HostDigits),
		"digit_ratio":           f.DigitRatio(),
		"special_char_ratio":    f.SpecialCharRatio(),
		"has_encoded_chars":     boolFloat(f.HasEncodedChars),
		"has_non_default_port":  boolFloat(f.HasNonDefaultPort),
		"has_double_slash":      boolFloat(f.HasDoubleSlash),
		"has_at_symbol":         boolFloat(f.HasAtSymbol),
		"suspicious_word_count": float64(f.SuspiciousWords),
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

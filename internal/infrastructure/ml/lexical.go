// Package ml provides scoring models: a local logistic scorer over the
// extracted features and a client for models served over HTTP.
package ml

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/infrastructure/config"
)

// DefaultLexicalBias is the intercept of the built-in coefficients.
const DefaultLexicalBias = -3.0

// DefaultLexicalCoefficients weighs the feature vector entries. Keys match
// model.FeatureSet.Vector.
func DefaultLexicalCoefficients() map[string]float64 {
	return map[string]float64{
		"length":                0.01,
		"subdomain_count":       0.3,
		"has_ip_host":           2.5,
		"has_punycode":          1.5,
		"suspicious_tld":        1.5,
		"has_https":             -0.8,
		"host_entropy":          0.3,
		"host_hyphens":          0.4,
		"host_digits":           0.15,
		"digit_ratio":           3.0,
		"has_encoded_chars":     0.5,
		"has_non_default_port":  1.0,
		"has_double_slash":      1.2,
		"has_at_symbol":         2.0,
		"suspicious_word_count": 0.9,
	}
}

// Preset biases of the focused coefficient sets.
const (
	StructureBias = -2.5
	ContentBias   = -2.5
)

// StructureCoefficients scores the shape of the host only.
func StructureCoefficients() map[string]float64 {
	return map[string]float64{
		"subdomain_count":      0.4,
		"has_ip_host":          3.0,
		"has_punycode":         2.0,
		"suspicious_tld":       1.8,
		"host_entropy":         0.25,
		"host_hyphens":         0.5,
		"host_digits":          0.2,
		"has_non_default_port": 1.2,
	}
}

// ContentCoefficients scores the path, query and character make-up.
func ContentCoefficients() map[string]float64 {
	return map[string]float64{
		"length":                0.012,
		"path_length":           0.01,
		"query_length":          0.008,
		"has_https":             -1.0,
		"digit_ratio":           2.5,
		"special_char_ratio":    2.0,
		"has_encoded_chars":     0.7,
		"has_double_slash":      1.5,
		"has_at_symbol":         2.5,
		"suspicious_word_count": 1.1,
	}
}

// PresetCoefficients returns the bias and coefficients of a named preset.
// The empty name and "full" select the built-in set.
func PresetCoefficients(preset string) (float64, map[string]float64, error) {
	switch preset {
	case "", config.LexicalPresetFull:
		return DefaultLexicalBias, DefaultLexicalCoefficients(), nil
	case config.LexicalPresetStructure:
		return StructureBias, StructureCoefficients(), nil
	case config.LexicalPresetContent:
		return ContentBias, ContentCoefficients(), nil
	default:
		return 0, nil, fmt.Errorf("unknown lexical preset %q", preset)
	}
}

// LexicalModel is a logistic regression over the URL feature vector. It
// needs no network and serves as the fallback member of the ensemble.
type LexicalModel struct {
	name         string
	coefficients map[string]float64
	terms        []string // sorted coefficient names
	bias         float64
}

// NewLexicalModel creates a LexicalModel. Empty coefficients select the
// built-in set and its bias.
func NewLexicalModel(name string, bias float64, coefficients map[string]float64) *LexicalModel {
	if len(coefficients) == 0 {
		coefficients = DefaultLexicalCoefficients()
		bias = DefaultLexicalBias
	}
	return &LexicalModel{
		name:         name,
		coefficients: coefficients,
		terms:        slices.Sorted(maps.Keys(coefficients)),
		bias:         bias,
	}
}

// Name returns the registry name.
func (m *LexicalModel) Name() string { return m.name }

// Score returns sigmoid(bias + w·x). Terms are summed in a fixed order so
// identical features always give bit-identical probabilities.
func (m *LexicalModel) Score(ctx context.Context, _ model.URLRequest, features model.FeatureSet) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x := features.Vector()
	z := m.bias
	for _, name := range m.terms {
		z += m.coefficients[name] * x[name]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

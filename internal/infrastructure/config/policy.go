package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
)

// Model kinds understood by the registry.
const (
	ModelKindHTTP    = "http"
	ModelKindLexical = "lexical"
)

// Coefficient presets for lexical models without explicit coefficients.
const (
	LexicalPresetFull      = "full"
	LexicalPresetStructure = "structure"
	LexicalPresetContent   = "content"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// ModelSpec registers one scoring model.
type ModelSpec struct {
	Coefficients map[string]float64 `yaml:"coefficients"`
	Name         string             `yaml:"name"`
	Kind         string             `yaml:"kind"`
	Endpoint     string             `yaml:"endpoint"`
	Preset       string             `yaml:"preset"`
	Weight       float64            `yaml:"weight"`
	Bias         float64            `yaml:"bias"`
	Timeout      time.Duration      `yaml:"timeout"`
}

// Policy is the engine policy: the model registry, rule thresholds and
// trust lists. Sections omitted from the file keep their built-in values.
type Policy struct {
	Models []ModelSpec              `yaml:"models"`
	Trust  service.TrustListsConfig `yaml:"trust"`
	Rules  service.RulePolicy       `yaml:"rules"`
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() (Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// LoadPolicy reads the policy file at path, or the embedded default when
// path is empty.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes and validates a YAML policy. Unknown keys are errors.
func ParsePolicy(data []byte) (Policy, error) {
	p := Policy{
		Rules: service.DefaultRulePolicy(),
		Trust: service.DefaultTrustListsConfig(),
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("failed to decode policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the model registry, thresholds and trust lists.
func (p Policy) Validate() error {
	if len(p.Models) == 0 {
		return fmt.Errorf("%w: no models registered", model.ErrInvalidWeights)
	}

	seen := make(map[string]struct{}, len(p.Models))
	var sum float64
	for i, m := range p.Models {
		if m.Name == "" {
			return fmt.Errorf("models[%d]: name is required", i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("models[%d]: duplicate model name %q", i, m.Name)
		}
		seen[m.Name] = struct{}{}

		switch m.Kind {
		case ModelKindHTTP:
			if m.Endpoint == "" {
				return fmt.Errorf("models[%d] %s: endpoint is required for http models", i, m.Name)
			}
		case ModelKindLexical:
			switch m.Preset {
			case "", LexicalPresetFull, LexicalPresetStructure, LexicalPresetContent:
			default:
				return fmt.Errorf("models[%d] %s: unknown preset %q", i, m.Name, m.Preset)
			}
		default:
			return fmt.Errorf("models[%d] %s: unknown kind %q", i, m.Name, m.Kind)
		}

		if m.Weight <= 0 {
			return fmt.Errorf("%w: model %s has weight %f", model.ErrInvalidWeights, m.Name, m.Weight)
		}
		if m.Timeout < 0 {
			return fmt.Errorf("models[%d] %s: timeout must not be negative", i, m.Name)
		}
		sum += m.Weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("%w: weights sum to %f", model.ErrInvalidWeights, sum)
	}

	if err := p.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if _, err := service.NewTrustLists(p.Trust); err != nil {
		return fmt.Errorf("trust: %w", err)
	}
	return nil
}

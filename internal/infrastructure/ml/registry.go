package ml

import (
	"fmt"
	"net/http"

	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/infrastructure/config"
)

// BuildModels instantiates the models a policy registers.
func BuildModels(specs []config.ModelSpec, client *http.Client) ([]service.WeightedModel, error) {
	out := make([]service.WeightedModel, 0, len(specs))
	for _, s := range specs {
		wm := service.WeightedModel{Weight: s.Weight, Timeout: s.Timeout}
		switch s.Kind {
		case config.ModelKindHTTP:
			wm.Model = NewHTTPModel(s.Name, s.Endpoint, client)
		case config.ModelKindLexical:
			bias, coefficients := s.Bias, s.Coefficients
			if len(coefficients) == 0 {
				var err error
				if bias, coefficients, err = PresetCoefficients(s.Preset); err != nil {
					return nil, fmt.Errorf("model %s: %w", s.Name, err)
				}
			}
			wm.Model = NewLexicalModel(s.Name, bias, coefficients)
		default:
			return nil, fmt.Errorf("model %s: unknown kind %q", s.Name, s.Kind)
		}
		out = append(out, wm)
	}
	return out, nil
}

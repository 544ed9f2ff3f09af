package model

import "time"

// ModelStatus tags the outcome of one model call.
type ModelStatus string

const (
	ModelStatusOK      ModelStatus = "ok"
	ModelStatusTimeout ModelStatus = "timeout"
	ModelStatusError   ModelStatus = "error"
)

// ModelScore is the contribution of one scoring model to a verdict.
// EffectiveWeight is the weight after renormalization across the models
// that returned; it is zero for models that timed out or errored.
type ModelScore struct {
	Name            string        `json:"name"`
	Probability     float64       `json:"probability"`
	Weight          float64       `json:"weight"`
	EffectiveWeight float64       `json:"effective_weight"`
	Latency         time.Duration `json:"latency_ns"`
	Status          ModelStatus   `json:"status"`
	Error           string        `json:"error,omitempty"`
}

// Available reports whether the model produced a probability.
func (s ModelScore) Available() bool {
	return s.Status == ModelStatusOK
}

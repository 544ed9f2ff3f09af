package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
)

const weightTolerance = 1e-6

// WeightedModel registers a scoring model with its ensemble weight. Timeout
// overrides the default equal share of the scoring budget when positive.
type WeightedModel struct {
	Model   port.ScoringModel
	Weight  float64
	Timeout time.Duration
}

// ModelStatusReport is a point-in-time view of one registered model.
type ModelStatusReport struct {
	Name        string        `json:"name"`
	Weight      float64       `json:"weight"`
	Timeout     time.Duration `json:"timeout_ns"`
	Calls       int64         `json:"calls"`
	Failures    int64         `json:"failures"`
	Timeouts    int64         `json:"timeouts"`
	LastLatency time.Duration `json:"last_latency_ns"`
	LastStatus  string        `json:"last_status,omitempty"`
}

// EnsembleResult is the combined output of one ensemble call.
type EnsembleResult struct {
	Probability float64
	Scores      []model.ModelScore
	Warnings    []string
}

type modelStats struct {
	calls       atomic.Int64
	failures    atomic.Int64
	timeouts    atomic.Int64
	lastLatency atomic.Int64
	lastStatus  atomic.Value
}

type registeredModel struct {
	WeightedModel
	stats *modelStats
}

// Ensemble fans a request out to every registered model and fuses the
// surviving probabilities with a renormalized weighted mean.
type Ensemble struct {
	models []registeredModel
	logger *slog.Logger
}

// NewEnsemble validates the registration and creates an Ensemble. Names must
// be unique, weights positive and summing to 1.0.
func NewEnsemble(models []WeightedModel, logger *slog.Logger) (*Ensemble, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no models registered", model.ErrInvalidWeights)
	}

	seen := make(map[string]struct{}, len(models))
	var sum float64
	registered := make([]registeredModel, 0, len(models))
	for _, m := range models {
		if m.Model == nil {
			return nil, fmt.Errorf("model is required")
		}
		name := m.Model.Name()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate model name: %s", name)
		}
		seen[name] = struct{}{}
		if m.Weight <= 0 {
			return nil, fmt.Errorf("%w: model %s has weight %f", model.ErrInvalidWeights, name, m.Weight)
		}
		sum += m.Weight
		registered = append(registered, registeredModel{WeightedModel: m, stats: &modelStats{}})
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: got %f", model.ErrInvalidWeights, sum)
	}

	return &Ensemble{models: registered, logger: logger}, nil
}

// Score calls every model concurrently. Each call runs under its own
// deadline: the model's Timeout, or budget divided equally otherwise.
// Models that fail or time out are excluded and the remaining weights are
// renormalized. If no model returns, ErrEnsembleUnavailable is returned.
func (e *Ensemble) Score(ctx context.Context, req model.URLRequest, features model.FeatureSet, budget time.Duration) (EnsembleResult, error) {
	scores := make([]model.ModelScore, len(e.models))

	var wg sync.WaitGroup
	for i := range e.models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scores[i] = e.call(ctx, e.models[i], req, features, e.timeoutFor(e.models[i], budget))
		}(i)
	}
	wg.Wait()

	var res EnsembleResult
	var surviving float64
	for _, s := range scores {
		if s.Available() {
			surviving += s.Weight
		}
	}

	if surviving == 0 {
		for i := range scores {
			scores[i].EffectiveWeight = 0
		}
		res.Scores = scores
		return res, fmt.Errorf("%w: all %d models failed", model.ErrEnsembleUnavailable, len(scores))
	}

	for i := range scores {
		s := &scores[i]
		if !s.Available() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("model %s unavailable (%s)", s.Name, s.Status))
			continue
		}
		s.EffectiveWeight = s.Weight / surviving
		res.Probability += s.EffectiveWeight * s.Probability
	}
	res.Probability = math.Max(0, math.Min(1, res.Probability))
	res.Scores = scores
	return res, nil
}

func (e *Ensemble) timeoutFor(m registeredModel, budget time.Duration) time.Duration {
	if m.Timeout > 0 {
		return m.Timeout
	}
	if budget <= 0 {
		return 0
	}
	return budget / time.Duration(len(e.models))
}

type modelResult struct {
	p   float64
	err error
}

// call invokes one model under timeout. The result is abandoned when the
// deadline passes even if the model ignores its context.
func (e *Ensemble) call(ctx context.Context, m registeredModel, req model.URLRequest, features model.FeatureSet, timeout time.Duration) model.ModelScore {
	score := model.ModelScore{Name: m.Model.Name(), Weight: m.Weight}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan modelResult, 1)
	go func() {
		p, err := m.Model.Score(callCtx, req, features)
		done <- modelResult{p: p, err: err}
	}()

	var r modelResult
	select {
	case r = <-done:
	case <-callCtx.Done():
		r.err = callCtx.Err()
	}
	score.Latency = time.Since(start)

	switch {
	case r.err == nil && (r.p < 0 || r.p > 1 || math.IsNaN(r.p)):
		score.Status = model.ModelStatusError
		score.Error = fmt.Sprintf("probability out of range: %f", r.p)
	case r.err == nil:
		score.Status = model.ModelStatusOK
		score.Probability = r.p
	case errors.Is(r.err, context.DeadlineExceeded):
		score.Status = model.ModelStatusTimeout
		score.Error = r.err.Error()
	default:
		score.Status = model.ModelStatusError
		score.Error = r.err.Error()
	}

	m.stats.calls.Add(1)
	m.stats.lastLatency.Store(int64(score.Latency))
	m.stats.lastStatus.Store(string(score.Status))
	switch score.Status {
	case model.ModelStatusTimeout:
		m.stats.timeouts.Add(1)
		e.logger.Warn("model timed out", "model", score.Name, "timeout", timeout)
	case model.ModelStatusError:
		m.stats.failures.Add(1)
		e.logger.Warn("model failed", "model", score.Name, "error", score.Error)
	}

	return score
}

// Status reports registration and call counters for every model.
func (e *Ensemble) Status() []ModelStatusReport {
	out := make([]ModelStatusReport, 0, len(e.models))
	for _, m := range e.models {
		r := ModelStatusReport{
			Name:        m.Model.Name(),
			Weight:      m.Weight,
			Timeout:     m.Timeout,
			Calls:       m.stats.calls.Load(),
			Failures:    m.stats.failures.Load(),
			Timeouts:    m.stats.timeouts.Load(),
			LastLatency: time.Duration(m.stats.lastLatency.Load()),
		}
		if s, ok := m.stats.lastStatus.Load().(string); ok {
			r.LastStatus = s
		}
		out = append(out, r)
	}
	return out
}

// Models returns the registered model names in registration order.
func (e *Ensemble) Models() []string {
	out := make([]string, 0, len(e.models))
	for _, m := range e.models {
		out = append(out, m.Model.Name())
	}
	return out
}

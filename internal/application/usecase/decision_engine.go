package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/service"
)

const instrumentationName = "github.com/bibbank/phishguard/internal/application/usecase"

// DecisionConfig bounds a single decision. PublishTimeout bounds the
// background delivery of its events.
type DecisionConfig struct {
	DecisionTimeout time.Duration
	CacheTTL        time.Duration
	PublishTimeout  time.Duration
}

// DecisionEngine fuses features, model scores and domain trust into a verdict.
type DecisionEngine struct {
	extractor *service.FeatureExtractor
	ensemble  *service.Ensemble
	trust     *service.TrustEvaluator
	rules     *service.RuleEngine
	cache     *service.ResultCache
	publisher port.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   decisionMetrics
	cfg       DecisionConfig
	inflight  sync.WaitGroup
}

type decisionMetrics struct {
	decisions     metric.Int64Counter
	cacheHits     metric.Int64Counter
	modelFailures metric.Int64Counter
	latency       metric.Float64Histogram
}

// NewDecisionEngine creates a DecisionEngine. publisher may be nil.
func NewDecisionEngine(
	extractor *service.FeatureExtractor,
	ensemble *service.Ensemble,
	trust *service.TrustEvaluator,
	rules *service.RuleEngine,
	cache *service.ResultCache,
	publisher port.EventPublisher,
	cfg DecisionConfig,
	logger *slog.Logger,
) (*DecisionEngine, error) {
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 2 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	meter := otel.Meter(instrumentationName)
	var m decisionMetrics
	var err error
	if m.decisions, err = meter.Int64Counter("phishguard_decisions_total",
		metric.WithDescription("Verdicts returned, by risk level and cache status.")); err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}
	if m.cacheHits, err = meter.Int64Counter("phishguard_cache_hits_total",
		metric.WithDescription("Verdicts served from the result cache.")); err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}
	if m.modelFailures, err = meter.Int64Counter("phishguard_model_failures_total",
		metric.WithDescription("Model calls that timed out or errored.")); err != nil {
		return nil, fmt.Errorf("failed to create model failures counter: %w", err)
	}
	if m.latency, err = meter.Float64Histogram("phishguard_decision_duration_seconds",
		metric.WithDescription("End-to-end decision latency."), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return &DecisionEngine{
		extractor: extractor,
		ensemble:  ensemble,
		trust:     trust,
		rules:     rules,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		metrics:   m,
		cfg:       cfg,
	}, nil
}

// Decide returns the verdict for req, from the result cache when possible.
// Concurrent calls for the same fingerprint share one computation.
func (e *DecisionEngine) Decide(ctx context.Context, req model.URLRequest) (*model.Verdict, error) {
	if req.IsZero() {
		return nil, fmt.Errorf("%w: empty request", model.ErrMalformedURL)
	}

	ctx, span := e.tracer.Start(ctx, "DecisionEngine.Decide",
		trace.WithAttributes(attribute.String("url.full", req.URL())))
	defer span.End()

	start := time.Now()
	v, hit, err := e.cache.GetOrCompute(ctx, req.Fingerprint(), e.cfg.CacheTTL, func(ctx context.Context) (*model.Verdict, error) {
		return e.compute(ctx, req)
	})
	e.metrics.latency.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if hit {
		e.metrics.cacheHits.Add(ctx, 1)
	}
	if !req.IncludeFeatures() {
		v = v.WithoutFeatures()
	}
	e.metrics.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("risk_level", v.RiskLevel().String()),
		attribute.Bool("cached", hit),
	))
	span.SetAttributes(
		attribute.String("phishguard.risk_level", v.RiskLevel().String()),
		attribute.Bool("phishguard.cached", hit),
	)

	return v, nil
}

// compute runs the uncached pipeline for req.
func (e *DecisionEngine) compute(ctx context.Context, req model.URLRequest) (*model.Verdict, error) {
	start := time.Now()

	// 1. Extract features synchronously.
	features, err := e.extractor.Extract(req.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to extract features: %w", err)
	}

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DecisionTimeout)
	defer cancel()

	// 2. Evaluate domain trust alongside the model ensemble.
	var trustCh chan model.TrustAssessment
	if req.UseTrustSystem() && e.trust != nil {
		trustCh = make(chan model.TrustAssessment, 1)
		go func() {
			trustCh <- e.trust.Evaluate(dctx, req.Host())
		}()
	}

	// 3. Score with the ensemble under the decision budget.
	ens, err := e.ensemble.Score(dctx, req, features, e.cfg.DecisionTimeout)
	for _, s := range ens.Scores {
		if !s.Available() {
			e.metrics.modelFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("model", s.Name),
				attribute.String("status", string(s.Status)),
			))
		}
	}
	if err != nil {
		if errors.Is(err, model.ErrEnsembleUnavailable) {
			e.logger.Warn("ensemble unavailable", "url", req.URL(), "error", err)
		}
		return nil, fmt.Errorf("failed to score url: %w", err)
	}

	warnings := append([]string(nil), ens.Warnings...)

	// 4. Join the trust assessment if it made the deadline.
	var trust *model.TrustAssessment
	if trustCh != nil {
		select {
		case t := <-trustCh:
			trust = &t
			warnings = append(warnings, t.Warnings...)
		case <-dctx.Done():
			warnings = append(warnings, "domain trust unavailable: timeout")
		}
	}

	// 5. Apply the override rules.
	outcome := e.rules.Apply(service.RuleInput{
		Probability: ens.Probability,
		Features:    features,
		Trust:       trust,
		StrictMode:  req.StrictMode(),
	})
	warnings = append(warnings, outcome.Warnings...)

	// 6. Assemble the verdict. Features are always kept so a cached verdict
	// can serve requests that ask for them.
	v, err := model.NewVerdict(model.VerdictParams{
		URL:            req.URL(),
		Probability:    ens.Probability,
		RiskLevel:      outcome.Level,
		Confidence:     service.Confidence(ens.Probability, ens.Scores, trust),
		ModelScores:    ens.Scores,
		Trust:          trust,
		Warnings:       warnings,
		AppliedRules:   outcome.AppliedRules,
		ThresholdUsed:  outcome.ThresholdUsed,
		StrictMode:     req.StrictMode(),
		Recommendation: service.Recommendation(outcome.Level, ens.Probability, trust),
		Features:       &features,
		Elapsed:        time.Since(start),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict: %w", err)
	}

	// 7. Publish domain events in the background.
	e.publishAsync(ctx, v)

	e.logger.Debug("verdict computed",
		"url", v.URL(),
		"risk_level", v.RiskLevel().String(),
		"probability", v.Probability(),
		"elapsed", v.Elapsed(),
	)

	return v, nil
}

// publishAsync delivers the verdict's events without holding up the
// decision. Failures are logged and never fail the scan.
func (e *DecisionEngine) publishAsync(ctx context.Context, v *model.Verdict) {
	evts := v.DomainEvents()
	if len(evts) == 0 || e.publisher == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PublishTimeout)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer cancel()
		if err := e.publisher.Publish(pctx, evts...); err != nil {
			e.logger.Warn("failed to publish verdict events", "verdict_id", v.ID(), "error", err)
		}
	}()
}

// Wait blocks until background event deliveries finish or ctx is done.
func (e *DecisionEngine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/infrastructure/cache"
	"github.com/bibbank/phishguard/internal/infrastructure/config"
	"github.com/bibbank/phishguard/internal/infrastructure/ml"
	"github.com/bibbank/phishguard/internal/infrastructure/webpage"
	grpcpresentation "github.com/bibbank/phishguard/internal/presentation/grpc"
	"github.com/bibbank/phishguard/internal/presentation/rest"
	"github.com/bibbank/phishguard/pkg/auth"
	"github.com/bibbank/phishguard/pkg/observability"
	"github.com/bibbank/phishguard/pkg/tlsutil"
)

const userAgent = "PhishGuard/1.0 (+link-scan)"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting phishguard",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"cache_backend", cfg.Cache.Backend,
	)

	// Initialize tracing and metrics.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer meterProvider.Shutdown(context.Background())

	// Engine policy.
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load policy", "error", err)
		os.Exit(1)
	}

	lists, err := service.NewTrustLists(policy.Trust)
	if err != nil {
		logger.Error("failed to build trust lists", "error", err)
		os.Exit(1)
	}

	outbound := &http.Client{Timeout: cfg.Engine.DecisionTimeout}

	// Wire domain services.
	models, err := ml.BuildModels(policy.Models, outbound)
	if err != nil {
		logger.Error("failed to build models", "error", err)
		os.Exit(1)
	}
	ensemble, err := service.NewEnsemble(models, logger)
	if err != nil {
		logger.Error("failed to build ensemble", "error", err)
		os.Exit(1)
	}
	rules, err := service.NewRuleEngine(policy.Rules)
	if err != nil {
		logger.Error("failed to build rule engine", "error", err)
		os.Exit(1)
	}
	extractor := service.NewFeatureExtractor(lists)
	trust := service.NewTrustEvaluator(lists, buildEvidenceGateway(cfg, outbound, logger), cfg.Engine.TrustLookupTimeout, logger)

	// Wire infrastructure adapters.
	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.close()

	resultCache := service.NewResultCache(stores.verdicts, logger)
	if stores.purger != nil {
		go cache.RunJanitor(ctx, stores.purger, cfg.Cache.JanitorInterval, logger)
	}

	bus, err := openEvents(ctx, cfg, resultCache, logger)
	if err != nil {
		logger.Error("failed to set up events", "error", err)
		os.Exit(1)
	}
	defer bus.close()

	engine, err := usecase.NewDecisionEngine(extractor, ensemble, trust, rules, resultCache, bus.publisher,
		usecase.DecisionConfig{
			DecisionTimeout: cfg.Engine.DecisionTimeout,
			CacheTTL:        cfg.Cache.TTL,
		}, logger)
	if err != nil {
		logger.Error("failed to build decision engine", "error", err)
		os.Exit(1)
	}

	// Wire use cases.
	fetcher := webpage.NewFetcher(&http.Client{Timeout: cfg.Engine.PageFetchTimeout}, userAgent)
	modelStatus := usecase.NewGetModelStatus(ensemble)
	uc := rest.UseCases{
		ScanURL:         usecase.NewScanURL(engine),
		QuickScan:       usecase.NewQuickScan(engine),
		ScanBatch:       usecase.NewScanBatch(engine, cfg.Engine.MaxBatch, cfg.Engine.BatchConcurrency),
		ScanWebpage:     usecase.NewScanWebpage(engine, fetcher, cfg.Engine.BatchConcurrency, logger),
		EvaluateDomain:  usecase.NewEvaluateDomain(trust),
		ExtractFeatures: usecase.NewExtractFeatures(extractor),
		SubmitFeedback:  usecase.NewSubmitFeedback(stores.feedback, bus.publisher, resultCache, logger),
		GetFeedback:     usecase.NewGetFeedback(stores.feedback),
		InvalidateURL:   usecase.NewInvalidateURL(resultCache),
		ModelStatus:     modelStatus,
	}

	// Auth and TLS.
	var jwtService *auth.JWTService
	if cfg.Auth.Enabled {
		jwtService, err = newJWTService(cfg.Auth)
		if err != nil {
			logger.Error("failed to initialize JWT service", "error", err)
			os.Exit(1)
		}
		logger.Info("auth enabled", "algorithm", jwtService.Algorithm(), "can_issue", jwtService.CanIssue())
	}

	grpcCfg := grpcpresentation.ServerConfig{
		Address:    cfg.GRPCAddress(),
		JWT:        jwtService,
		Reflection: cfg.GRPCReflection,
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.TLS.Enabled() {
		if httpServer.TLSConfig, err = tlsutil.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			logger.Error("failed to load TLS certificate", "error", err)
			os.Exit(1)
		}
		if grpcCfg.Creds, err = tlsutil.ServerCredentials(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			logger.Error("failed to load gRPC TLS credentials", "error", err)
			os.Exit(1)
		}
	}

	// gRPC server.
	grpcHandler := grpcpresentation.NewDecisionServiceHandler(uc.ScanURL, uc.EvaluateDomain, uc.SubmitFeedback, logger)
	grpcServer := grpcpresentation.NewServer(grpcHandler, grpcCfg, logger)

	// HTTP server.
	checks := stores.checks
	checks["models"] = func(context.Context) error {
		if !modelStatus.Execute().Healthy {
			return fmt.Errorf("no healthy models")
		}
		return nil
	}
	var limiter *rest.RateLimiter
	if cfg.Auth.RateLimit > 0 {
		limiter = rest.NewRateLimiter(float64(cfg.Auth.RateLimit), cfg.Auth.RateBurst)
		go limiter.RunSweeper(ctx, time.Minute)
	}
	httpServer.Handler = rest.NewRouter(
		rest.NewHandler(uc, logger),
		rest.NewHealthHandler(cfg.ServiceName, checks, logger),
		rest.RouterConfig{Metrics: metricsHandler, JWT: jwtService, RateLimiter: limiter},
		logger,
	)

	// Start servers.
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress(), "tls", cfg.TLS.Enabled())
		var err error
		if cfg.TLS.Enabled() {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("phishguard started",
		"grpc_address", cfg.GRPCAddress(),
		"http_address", cfg.HTTPAddress(),
		"environment", cfg.Environment,
		"models", len(models),
	)

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown.
	logger.Info("shutting down phishguard")

	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := engine.Wait(shutdownCtx); err != nil {
		logger.Warn("pending verdict events dropped", "error", err)
	}

	logger.Info("phishguard stopped")
}

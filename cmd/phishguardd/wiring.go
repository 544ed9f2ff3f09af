package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/phishguard/internal/domain/port"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/infrastructure/cache"
	"github.com/bibbank/phishguard/internal/infrastructure/config"
	"github.com/bibbank/phishguard/internal/infrastructure/evidence"
	"github.com/bibbank/phishguard/internal/infrastructure/messaging"
	"github.com/bibbank/phishguard/internal/infrastructure/postgres"
	"github.com/bibbank/phishguard/internal/infrastructure/sqlite"
	"github.com/bibbank/phishguard/internal/presentation/rest"
	"github.com/bibbank/phishguard/migrations"
	"github.com/bibbank/phishguard/pkg/auth"
	"github.com/bibbank/phishguard/pkg/kafka"
	pgpkg "github.com/bibbank/phishguard/pkg/postgres"
)

const version = "1.0.0"

// newJWTService builds the token validator from the secret or the PEM key
// files named in the auth config.
func newJWTService(cfg config.AuthConfig) (*auth.JWTService, error) {
	jcfg := auth.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.Issuer}
	if err := jcfg.LoadKeyFiles(cfg.JWTPrivateKeyFile, cfg.JWTPublicKeyFile); err != nil {
		return nil, err
	}
	return auth.NewJWTService(jcfg)
}

// buildEvidenceGateway returns nil when evidence lookups are disabled.
// Sources without configuration are left as nil interfaces so the gateway
// skips them.
func buildEvidenceGateway(cfg config.Config, client *http.Client, logger *slog.Logger) port.EvidenceGateway {
	if !cfg.Evidence.Enabled {
		logger.Info("external evidence disabled")
		return nil
	}

	var sb evidence.SafeBrowsingChecker
	if cfg.Evidence.SafeBrowsingAPIKey != "" {
		sb = evidence.NewSafeBrowsingClient(client, cfg.Evidence.SafeBrowsingEndpoint, cfg.Evidence.SafeBrowsingAPIKey, version)
	}
	var dnsLookup evidence.DNSLookup
	if len(cfg.Evidence.DNSServers) > 0 {
		dnsLookup = evidence.NewDNSChecker(cfg.Evidence.DNSServers, cfg.Engine.TrustLookupTimeout)
	}
	var reg evidence.RegistrationLookup
	if cfg.Evidence.RDAPEnabled {
		reg = evidence.NewRDAPClient(client, cfg.Evidence.RDAPBaseURL)
	}

	logger.Info("external evidence enabled",
		"safe_browsing", sb != nil,
		"dns", dnsLookup != nil,
		"rdap", reg != nil,
	)

	ecfg := evidence.DefaultConfig()
	ecfg.RatePerSecond = cfg.Evidence.RatePerSecond
	ecfg.Burst = cfg.Evidence.Burst
	return evidence.NewGateway(sb, dnsLookup, reg, ecfg, logger)
}

// stores bundles the persistence adapters selected by CACHE_BACKEND.
type stores struct {
	verdicts port.VerdictStore
	feedback port.FeedbackRepository
	purger   cache.Purger
	checks   map[string]rest.ReadinessCheck
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores opens the verdict store and feedback repository. The memory
// backend keeps feedback in a private in-memory SQLite database.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]rest.ReadinessCheck)}

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		if err := pgpkg.RunMigrations(cfg.Database.DSN(), migrations.FS, "."); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		var err error
		pool, err = pgpkg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.checks["database"] = func(ctx context.Context) error { return pgpkg.HealthCheck(ctx, pool) }
		logger.Info("connected to database")
	}

	var db *sql.DB
	if cfg.Cache.Backend == config.CacheBackendSQLite || cfg.Cache.Backend == config.CacheBackendMemory {
		path := cfg.Cache.SQLitePath
		if cfg.Cache.Backend == config.CacheBackendMemory {
			path = ":memory:"
		}
		var err error
		db, err = sqlite.Open(ctx, path)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.checks["sqlite"] = db.PingContext
	}

	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		mem := cache.NewMemoryStore(cfg.Cache.Capacity)
		s.verdicts, s.purger = mem, mem
		s.feedback = sqlite.NewFeedbackRepository(db)
	case config.CacheBackendSQLite:
		store := sqlite.NewVerdictStore(db)
		s.verdicts, s.purger = store, store
		s.feedback = sqlite.NewFeedbackRepository(db)
	case config.CacheBackendPostgres:
		store := postgres.NewVerdictStore(pool)
		s.verdicts, s.purger = store, store
		s.feedback = postgres.NewFeedbackRepository(pool)
	case config.CacheBackendTiered:
		store := cache.NewTieredStore(cache.NewMemoryStore(cfg.Cache.Capacity), postgres.NewVerdictStore(pool))
		s.verdicts, s.purger = store, store
		s.feedback = postgres.NewFeedbackRepository(pool)
	default:
		s.close()
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return s, nil
}

// eventBus holds the publisher and, when Kafka is configured, the
// producer and invalidation consumer behind it.
type eventBus struct {
	publisher port.EventPublisher
	closers   []func() error
	logger    *slog.Logger
}

func (b *eventBus) close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			b.logger.Warn("failed to close kafka client", "error", err)
		}
	}
}

// openEvents publishes to Kafka when brokers are configured and logs
// events otherwise. The consumer invalidates cached verdicts disputed by
// feedback from any replica.
func openEvents(ctx context.Context, cfg config.Config, resultCache *service.ResultCache, logger *slog.Logger) (*eventBus, error) {
	b := &eventBus{logger: logger}
	if !cfg.Kafka.Enabled() {
		logger.Info("kafka not configured, logging events")
		b.publisher = messaging.NewLogPublisher(logger)
		return b, nil
	}

	kcfg := kafka.Config{
		ClientID:      cfg.ServiceName,
		ConsumerGroup: cfg.Kafka.GroupID,
		Brokers:       cfg.Kafka.Brokers,
		TLS:           cfg.Kafka.TLS,
		SASLEnabled:   cfg.Kafka.SASLMechanism != "",
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
	}

	producer, err := kafka.NewProducer(kcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	b.closers = append(b.closers, producer.Close)
	b.publisher = messaging.NewKafkaPublisher(producer, cfg.Kafka.Topic, logger)

	handler := messaging.NewFeedbackInvalidationHandler(resultCache, logger)
	consumer, err := kafka.NewConsumer(kcfg, cfg.Kafka.Topic, handler.Handle, logger)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	b.closers = append(b.closers, consumer.Close)

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("invalidation consumer stopped", "error", err)
		}
	}()

	logger.Info("kafka events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return b, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pgpkg "github.com/bibbank/phishguard/pkg/postgres"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendSQLite   = "sqlite"
	CacheBackendTiered   = "tiered"
)

// Config holds all configuration for the decision service.
type Config struct {
	// HTTP API, health and metrics port
	HTTPPort int
	// gRPC API port
	GRPCPort       int
	GRPCReflection bool
	// Service name for observability
	ServiceName  string
	Environment  string
	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	PolicyFile   string
	Auth         AuthConfig
	TLS          TLSConfig
	Database     pgpkg.Config
	Cache        CacheConfig
	Kafka        KafkaConfig
	Engine       EngineConfig
	Evidence     EvidenceConfig
}

// AuthConfig controls JWT validation and request rate limiting.
// A private key file lets the service issue RS256 tokens, a public key file
// alone validates them, and JWTSecret selects HS256.
type AuthConfig struct {
	JWTSecret         string
	JWTPrivateKeyFile string
	JWTPublicKeyFile  string
	Issuer            string
	Enabled           bool
	RateLimit         int // requests per second per client
	RateBurst         int
}

// HasKeyMaterial reports whether any JWT secret or key file is configured.
func (a AuthConfig) HasKeyMaterial() bool {
	return a.JWTSecret != "" || a.JWTPrivateKeyFile != "" || a.JWTPublicKeyFile != ""
}

// TLSConfig points at the server certificate shared by the HTTP and gRPC
// listeners. Both files unset serves plaintext.
type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether a certificate and key are configured.
func (c TLSConfig) Enabled() bool { return c.CertFile != "" && c.KeyFile != "" }

// CacheConfig selects and sizes the verdict store.
type CacheConfig struct {
	Backend         string
	SQLitePath      string
	Capacity        int
	TTL             time.Duration
	JanitorInterval time.Duration
}

// KafkaConfig holds Kafka connection settings. No brokers disables events.
type KafkaConfig struct {
	Topic         string
	GroupID       string
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	Brokers       []string
	TLS           bool
}

// Enabled reports whether at least one broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// EngineConfig bounds a decision and the batch endpoints.
type EngineConfig struct {
	DecisionTimeout    time.Duration
	TrustLookupTimeout time.Duration
	PageFetchTimeout   time.Duration
	MaxBatch           int
	BatchConcurrency   int
}

// EvidenceConfig configures the external evidence sources.
type EvidenceConfig struct {
	SafeBrowsingAPIKey   string
	SafeBrowsingEndpoint string
	RDAPBaseURL          string
	DNSServers           []string
	RatePerSecond        float64
	Burst                int
	Enabled              bool
	RDAPEnabled          bool
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		GRPCPort:       getEnvInt("GRPC_PORT", 9090),
		GRPCReflection: getEnvBool("GRPC_REFLECTION", false),
		ServiceName:    getEnv("SERVICE_NAME", "phishguard"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		PolicyFile:     getEnv("POLICY_FILE", ""),
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			JWTPrivateKeyFile: getEnv("JWT_PRIVATE_KEY_FILE", ""),
			JWTPublicKeyFile:  getEnv("JWT_PUBLIC_KEY_FILE", ""),
			Issuer:            getEnv("JWT_ISSUER", "phishguard"),
			Enabled:           getEnvBool("AUTH_ENABLED", false),
			RateLimit:         getEnvInt("RATE_LIMIT", 100),
			RateBurst:         getEnvInt("RATE_BURST", 200),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		Database: pgpkg.Config{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "phishguard"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "phishguard"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Cache: CacheConfig{
			Backend:         strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
			SQLitePath:      getEnv("SQLITE_PATH", "phishguard.db"),
			Capacity:        getEnvInt("CACHE_CAPACITY", 100_000),
			TTL:             getEnvDuration("CACHE_TTL", time.Hour),
			JanitorInterval: getEnvDuration("CACHE_JANITOR_INTERVAL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS"),
			Topic:         getEnv("KAFKA_TOPIC", "phishguard.events"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "phishguard-cache-invalidator"),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
			TLS:           getEnvBool("KAFKA_TLS", false),
		},
		Engine: EngineConfig{
			DecisionTimeout:    getEnvDuration("DECISION_TIMEOUT", 800*time.Millisecond),
			TrustLookupTimeout: getEnvDuration("TRUST_LOOKUP_TIMEOUT", 500*time.Millisecond),
			PageFetchTimeout:   getEnvDuration("PAGE_FETCH_TIMEOUT", 5*time.Second),
			MaxBatch:           getEnvInt("MAX_BATCH", 100),
			BatchConcurrency:   getEnvInt("BATCH_CONCURRENCY", 8),
		},
		Evidence: EvidenceConfig{
			Enabled:              getEnvBool("EVIDENCE_ENABLED", true),
			SafeBrowsingAPIKey:   getEnv("GOOGLE_SAFE_BROWSING_API_KEY", ""),
			SafeBrowsingEndpoint: getEnv("SAFE_BROWSING_ENDPOINT", ""),
			RDAPEnabled:          getEnvBool("RDAP_ENABLED", true),
			RDAPBaseURL:          getEnv("RDAP_BASE_URL", ""),
			DNSServers:           getEnvListDefault("DNS_SERVERS", []string{"1.1.1.1:53", "8.8.8.8:53"}),
			RatePerSecond:        getEnvFloat("EVIDENCE_RATE", 50),
			Burst:                getEnvInt("EVIDENCE_BURST", 100),
		},
	}
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendSQLite:
	case CacheBackendPostgres, CacheBackendTiered:
		if c.Database.URL == "" && c.Database.Password == "" {
			errs = append(errs, errors.New("DATABASE_URL or DB_PASSWORD is required for the postgres cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}
	if c.Auth.Enabled && !c.Auth.HasKeyMaterial() {
		errs = append(errs, errors.New("JWT_SECRET, JWT_PUBLIC_KEY_FILE or JWT_PRIVATE_KEY_FILE is required when AUTH_ENABLED is set"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.Engine.DecisionTimeout <= 0 {
		errs = append(errs, errors.New("DECISION_TIMEOUT must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns the listen address of the HTTP server.
func (c Config) HTTPAddress() string { return fmt.Sprintf(":%d", c.HTTPPort) }

// GRPCAddress returns the listen address of the gRPC server.
func (c Config) GRPCAddress() string { return fmt.Sprintf(":%d", c.GRPCPort) }

// UsesPostgres reports whether the selected cache backend needs PostgreSQL.
func (c Config) UsesPostgres() bool {
	return c.Cache.Backend == CacheBackendPostgres || c.Cache.Backend == CacheBackendTiered
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	return getEnvListDefault(key, nil)
}

func getEnvListDefault(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

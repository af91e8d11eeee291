// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BaseURL is the public URL of the API; report image links are built from it.
	BaseURL string `mapstructure:"BASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "attendance-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "attendance-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for PIN hashes; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// UseCookies when true makes login also set the access_token cookie.
	UseCookies bool `mapstructure:"USE_COOKIES"`
	// CookieSecure sets the Secure attribute on the access_token cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// PhotoMaxBytes caps the clock-in photo upload size.
	PhotoMaxBytes int64 `mapstructure:"PHOTO_MAX_BYTES"`
	// PhotoMaxPixels caps width*height, read from the image header before the photo is decoded.
	PhotoMaxPixels int64 `mapstructure:"PHOTO_MAX_PIXELS"`
	// PhotoMaxDimension downscales photos whose longer side exceeds it; 0 keeps originals.
	PhotoMaxDimension int `mapstructure:"PHOTO_MAX_DIMENSION"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When set, clock events are also published to AttendanceKafkaTopic.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AttendanceKafkaTopic is the Kafka topic for attendance events.
	AttendanceKafkaTopic string `mapstructure:"ATTENDANCE_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// HealthCheckInterval is how often readiness probes run.
	HealthCheckInterval time.Duration `mapstructure:"HEALTH_CHECK_INTERVAL"`
	// ShutdownDrain is how long the server reports NOT_SERVING before closing listeners.
	ShutdownDrain time.Duration `mapstructure:"SHUTDOWN_DRAIN_DURATION"`

	// SeedFile is an optional YAML fixture path for cmd/seed; the embedded fixture is used when empty.
	SeedFile string `mapstructure:"SEED_FILE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "attendance-auth")
	v.SetDefault("JWT_AUDIENCE", "attendance-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("USE_COOKIES", true)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PHOTO_MAX_BYTES", 5*1024*1024)
	v.SetDefault("PHOTO_MAX_PIXELS", 40_000_000)
	v.SetDefault("PHOTO_MAX_DIMENSION", 0)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "attendance-tracker")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ATTENDANCE_KAFKA_TOPIC", "attendance-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "attendance-event-worker")
	v.SetDefault("HEALTH_CHECK_INTERVAL", "15s")
	v.SetDefault("SHUTDOWN_DRAIN_DURATION", "5s")
	v.SetDefault("SEED_FILE", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.PhotoMaxBytes <= 0 {
		return nil, errors.New("config: PHOTO_MAX_BYTES must be positive")
	}
	if cfg.PhotoMaxPixels <= 0 {
		return nil, errors.New("config: PHOTO_MAX_PIXELS must be positive")
	}
	if cfg.PhotoMaxDimension < 0 {
		return nil, errors.New("config: PHOTO_MAX_DIMENSION must not be negative")
	}

	if cfg.HealthCheckInterval <= 0 {
		return nil, errors.New("config: HEALTH_CHECK_INTERVAL must be positive")
	}
	if cfg.ShutdownDrain < 0 {
		return nil, errors.New("config: SHUTDOWN_DRAIN_DURATION must not be negative")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

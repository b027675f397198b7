// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"adaptive-auth/backend/internal/mfa"
	"adaptive-auth/backend/internal/risk"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// MetricsAddr is the address of the Prometheus /metrics HTTP listener. Empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty outside production the server runs on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTPReturnToClient enables the dev-only DevService that returns issued codes. Rejected when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// DebugRiskEnabled registers the DebugAssessRisk RPC. Rejected when Env is production.
	DebugRiskEnabled bool `mapstructure:"DEBUG_RISK_ENABLED"`

	// Risk policy. Weights are the points a flagged signal contributes to the score.
	RiskThreshold              int     `mapstructure:"RISK_THRESHOLD"`
	RiskWeightReputation       int     `mapstructure:"RISK_WEIGHT_REPUTATION"`
	RiskWeightNewDevice        int     `mapstructure:"RISK_WEIGHT_NEW_DEVICE"`
	RiskWeightImpossibleTravel int     `mapstructure:"RISK_WEIGHT_IMPOSSIBLE_TRAVEL"`
	RiskWeightAtypicalTime     int     `mapstructure:"RISK_WEIGHT_ATYPICAL_TIME"`
	RiskMaxTravelSpeedKmh      float64 `mapstructure:"RISK_MAX_TRAVEL_SPEED_KMH"`
	RiskSimultaneousDistanceKm float64 `mapstructure:"RISK_SIMULTANEOUS_DISTANCE_KM"`
	RiskAtypicalMinLogins      int     `mapstructure:"RISK_ATYPICAL_MIN_LOGINS"`
	// RiskAtypicalWindow is the trailing window of successful logins used for the usual login hour (e.g. "720h").
	RiskAtypicalWindow      string `mapstructure:"RISK_ATYPICAL_WINDOW"`
	RiskAtypicalMaxHourDiff int    `mapstructure:"RISK_ATYPICAL_MAX_HOUR_DIFF"`

	// ChallengeTTL is the lifetime of a pending second-factor challenge (e.g. "5m").
	ChallengeTTL string `mapstructure:"CHALLENGE_TTL"`
	// ChallengeMaxAttempts is the number of wrong codes allowed before a challenge locks.
	ChallengeMaxAttempts int `mapstructure:"CHALLENGE_MAX_ATTEMPTS"`

	// ReputationBlockedPrefixes is a comma-separated list of origin address prefixes treated as bad reputation.
	ReputationBlockedPrefixes string `mapstructure:"REPUTATION_BLOCKED_PREFIXES"`
	// ReputationBlockedCIDRs is a comma-separated list of CIDR blocks treated as bad reputation.
	ReputationBlockedCIDRs string `mapstructure:"REPUTATION_BLOCKED_CIDRS"`
	// ReputationPolicyFile optionally replaces the built-in Rego reputation policy.
	ReputationPolicyFile string `mapstructure:"REPUTATION_POLICY_FILE"`
	// ReputationTimeout bounds a single reputation lookup (e.g. "500ms").
	ReputationTimeout string `mapstructure:"REPUTATION_TIMEOUT"`

	// OTLP exporter settings; empty endpoint means no-op providers.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for decision events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	policy := risk.DefaultPolicy()
	challenge := mfa.DefaultConfig()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("DEBUG_RISK_ENABLED", false)
	v.SetDefault("RISK_THRESHOLD", policy.Threshold)
	v.SetDefault("RISK_WEIGHT_REPUTATION", policy.Weights.Reputation)
	v.SetDefault("RISK_WEIGHT_NEW_DEVICE", policy.Weights.NewDevice)
	v.SetDefault("RISK_WEIGHT_IMPOSSIBLE_TRAVEL", policy.Weights.ImpossibleTravel)
	v.SetDefault("RISK_WEIGHT_ATYPICAL_TIME", policy.Weights.AtypicalTime)
	v.SetDefault("RISK_MAX_TRAVEL_SPEED_KMH", policy.MaxTravelSpeedKmh)
	v.SetDefault("RISK_SIMULTANEOUS_DISTANCE_KM", policy.SimultaneousDistanceKm)
	v.SetDefault("RISK_ATYPICAL_MIN_LOGINS", policy.AtypicalMinLogins)
	v.SetDefault("RISK_ATYPICAL_WINDOW", policy.AtypicalWindow.String())
	v.SetDefault("RISK_ATYPICAL_MAX_HOUR_DIFF", policy.AtypicalMaxHourDistance)
	v.SetDefault("CHALLENGE_TTL", challenge.TTL.String())
	v.SetDefault("CHALLENGE_MAX_ATTEMPTS", challenge.MaxAttempts)
	v.SetDefault("REPUTATION_BLOCKED_PREFIXES", "192.168.99.,10.0.99.")
	v.SetDefault("REPUTATION_BLOCKED_CIDRS", "")
	v.SetDefault("REPUTATION_POLICY_FILE", "")
	v.SetDefault("REPUTATION_TIMEOUT", policy.ReputationTimeout.String())
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "adaptive-auth")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "adaptive-auth-decisions")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "adaptive-auth-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.OTPReturnToClient && cfg.IsProduction() {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if cfg.DebugRiskEnabled && cfg.IsProduction() {
		return nil, errors.New("config: DEBUG_RISK_ENABLED must not be true when APP_ENV=production")
	}
	if cfg.DatabaseURL == "" && cfg.IsProduction() {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.RiskThreshold <= 0 {
		return nil, errors.New("config: RISK_THRESHOLD must be positive")
	}
	if cfg.RiskWeightReputation < 0 || cfg.RiskWeightNewDevice < 0 ||
		cfg.RiskWeightImpossibleTravel < 0 || cfg.RiskWeightAtypicalTime < 0 {
		return nil, errors.New("config: RISK_WEIGHT_* must not be negative")
	}
	if cfg.RiskMaxTravelSpeedKmh <= 0 {
		return nil, errors.New("config: RISK_MAX_TRAVEL_SPEED_KMH must be positive")
	}
	if cfg.RiskAtypicalMaxHourDiff < 0 || cfg.RiskAtypicalMaxHourDiff > 12 {
		return nil, errors.New("config: RISK_ATYPICAL_MAX_HOUR_DIFF must be between 0 and 12")
	}
	if cfg.ChallengeMaxAttempts <= 0 {
		return nil, errors.New("config: CHALLENGE_MAX_ATTEMPTS must be positive")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// RiskPolicy builds the immutable risk policy from config. Invalid durations fall back to defaults.
func (c *Config) RiskPolicy() risk.Policy {
	def := risk.DefaultPolicy()
	return risk.Policy{
		Threshold: c.RiskThreshold,
		Weights: risk.Weights{
			Reputation:       c.RiskWeightReputation,
			NewDevice:        c.RiskWeightNewDevice,
			ImpossibleTravel: c.RiskWeightImpossibleTravel,
			AtypicalTime:     c.RiskWeightAtypicalTime,
		},
		MaxTravelSpeedKmh:       c.RiskMaxTravelSpeedKmh,
		SimultaneousDistanceKm:  c.RiskSimultaneousDistanceKm,
		AtypicalMinLogins:       c.RiskAtypicalMinLogins,
		AtypicalWindow:          parseDuration(c.RiskAtypicalWindow, def.AtypicalWindow),
		AtypicalMaxHourDistance: c.RiskAtypicalMaxHourDiff,
		ReputationTimeout:       parseDuration(c.ReputationTimeout, def.ReputationTimeout),
	}
}

// ChallengeConfig returns the challenge lifetime and attempt limit. Returns 5m for an unset or invalid TTL.
func (c *Config) ChallengeConfig() mfa.Config {
	def := mfa.DefaultConfig()
	return mfa.Config{
		TTL:         parseDuration(c.ChallengeTTL, def.TTL),
		MaxAttempts: c.ChallengeMaxAttempts,
	}
}

// BlockedPrefixes returns the reputation prefix list from the comma-separated config.
func (c *Config) BlockedPrefixes() []string {
	return splitList(c.ReputationBlockedPrefixes)
}

// BlockedCIDRs returns the reputation CIDR list from the comma-separated config.
func (c *Config) BlockedCIDRs() []string {
	return splitList(c.ReputationBlockedCIDRs)
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

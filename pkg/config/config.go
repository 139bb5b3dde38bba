// Package config loads configuration for the sequencer from defaults,
// an optional config file, and SEQUENCER_* environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	API       APIConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Sequencer SequencerConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// APIConfig holds HTTP server configuration.
type APIConfig struct {
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMin    int
}

// RedisConfig holds Redis configuration. An empty address selects the
// in-process store, which is only suitable for development.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration. Empty brokers select the
// log-only event emitter.
type KafkaConfig struct {
	Brokers string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string
}

// SequencerConfig holds admission-control and metadata configuration.
type SequencerConfig struct {
	MinFee                 uint64
	PerByteFee             uint64
	MaxPayloadSize         int
	AllowRefinalize        bool
	Version                string
	SupportedNetworks      []string
	MinConfirmationLatency time.Duration
	CongestionDecayEvery   time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string
	Environment string
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Namespace string
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an optional path to a config file (yaml, toml, json).
	ConfigFile string
	// EnvFile is an optional .env file loaded before reading the environment.
	EnvFile string
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix string
}

// DefaultLoadOptions returns the standard load options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		EnvFile:   ".env",
		EnvPrefix: "SEQUENCER",
	}
}

// Load loads configuration using the default options.
func Load() (*Config, error) {
	return LoadWithOptions(DefaultLoadOptions())
}

// LoadWithOptions loads configuration from defaults, then the optional config
// file, then the environment.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		// Missing .env files are fine; the environment may be set directly.
		_ = godotenv.Load(opts.EnvFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.corsallowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("api.ratelimitpermin", 100)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", "")

	v.SetDefault("auth.jwtsecret", "")

	v.SetDefault("sequencer.minfee", 1000)
	v.SetDefault("sequencer.perbytefee", 16)
	v.SetDefault("sequencer.maxpayloadsize", 131072)
	v.SetDefault("sequencer.allowrefinalize", false)
	v.SetDefault("sequencer.version", "0.1.0")
	v.SetDefault("sequencer.supportednetworks", []string{"ethereum-mainnet", "ethereum-sepolia"})
	v.SetDefault("sequencer.minconfirmationlatency", "12s")
	v.SetDefault("sequencer.congestiondecayevery", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")

	v.SetDefault("metrics.namespace", "sequencer")
}

func validate(cfg *Config) error {
	if cfg.Sequencer.MaxPayloadSize <= 0 {
		return fmt.Errorf("sequencer.maxpayloadsize must be positive, got %d", cfg.Sequencer.MaxPayloadSize)
	}
	if cfg.Sequencer.MinFee == 0 {
		return fmt.Errorf("sequencer.minfee must be positive")
	}
	return nil
}

// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	Port                     string `mapstructure:"PORT"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBReadHost               string `mapstructure:"DB_READ_HOST"`
	DBReadPort               string `mapstructure:"DB_READ_PORT"`
	DBReadUser               string `mapstructure:"DB_READ_USER"`
	DBReadPassword           string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBAutoMigrate            bool   `mapstructure:"DB_AUTO_MIGRATE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	AllowedOrigins           string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags             string `mapstructure:"FEATURE_FLAGS"`
	Env                      string `mapstructure:"APP_ENV"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	FeedConfig `mapstructure:",squash"`
}

// FeedConfig carries the ranking knobs. Every value has a default so an empty
// environment still produces the documented behavior.
type FeedConfig struct {
	CandidatePoolSize     int     `mapstructure:"FEED_CANDIDATE_POOL_SIZE"`
	SourceWeightFriend    float64 `mapstructure:"FEED_SOURCE_WEIGHT_FRIEND"`
	SourceWeightTopic     float64 `mapstructure:"FEED_SOURCE_WEIGHT_TOPIC"`
	SourceWeightTrending  float64 `mapstructure:"FEED_SOURCE_WEIGHT_TRENDING"`
	SourceWeightDiscovery float64 `mapstructure:"FEED_SOURCE_WEIGHT_DISCOVERY"`
	ReactionWeight        float64 `mapstructure:"FEED_WEIGHT_REACTION"`
	CommentWeight         float64 `mapstructure:"FEED_WEIGHT_COMMENT"`
	ShareWeight           float64 `mapstructure:"FEED_WEIGHT_SHARE"`
	TimeDecayFactor       float64 `mapstructure:"FEED_TIME_DECAY_FACTOR"`
	PageSize              int     `mapstructure:"FEED_PAGE_SIZE"`
	MaxPageSize           int     `mapstructure:"FEED_MAX_PAGE_SIZE"`
	MinRemainingForCache  int     `mapstructure:"FEED_MIN_REMAINING_FOR_CACHE"`
	TrendingCount         int     `mapstructure:"FEED_TRENDING_COUNT"`
	RandomCount           int     `mapstructure:"FEED_RANDOM_COUNT"`
	TrendingWindowHours   int     `mapstructure:"FEED_TRENDING_WINDOW_HOURS"`
	DiversityWindow       int     `mapstructure:"FEED_DIVERSITY_WINDOW"`
	MinAffinityThreshold  int     `mapstructure:"FEED_MIN_AFFINITY_THRESHOLD"`
	TopicHashtagLimit     int     `mapstructure:"FEED_TOPIC_HASHTAG_LIMIT"`
	ReEngageAfterHours    int     `mapstructure:"FEED_REENGAGE_AFTER_HOURS"`
	SnapshotReads         bool    `mapstructure:"FEED_SNAPSHOT_READS"`
	SeenTTLMinutes        int     `mapstructure:"FEED_SEEN_TTL_MINUTES"`
}

// TrendingWindow returns the trending lookback as a duration.
func (f FeedConfig) TrendingWindow() time.Duration {
	return time.Duration(f.TrendingWindowHours) * time.Hour
}

// ReEngageAfter returns the dormancy threshold as a duration.
func (f FeedConfig) ReEngageAfter() time.Duration {
	return time.Duration(f.ReEngageAfterHours) * time.Hour
}

// SeenTTL returns how long shown post IDs are remembered per viewer.
func (f FeedConfig) SeenTTL() time.Duration {
	return time.Duration(f.SeenTTLMinutes) * time.Minute
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "tera")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("FEED_CANDIDATE_POOL_SIZE", 100)
	viper.SetDefault("FEED_SOURCE_WEIGHT_FRIEND", 1.7)
	viper.SetDefault("FEED_SOURCE_WEIGHT_TOPIC", 1.2)
	viper.SetDefault("FEED_SOURCE_WEIGHT_TRENDING", 1.0)
	viper.SetDefault("FEED_SOURCE_WEIGHT_DISCOVERY", 1.0)
	viper.SetDefault("FEED_WEIGHT_REACTION", 1.0)
	viper.SetDefault("FEED_WEIGHT_COMMENT", 3.0)
	viper.SetDefault("FEED_WEIGHT_SHARE", 5.0)
	viper.SetDefault("FEED_TIME_DECAY_FACTOR", 1.8)
	viper.SetDefault("FEED_PAGE_SIZE", 20)
	viper.SetDefault("FEED_MAX_PAGE_SIZE", 50)
	viper.SetDefault("FEED_MIN_REMAINING_FOR_CACHE", 10)
	viper.SetDefault("FEED_TRENDING_COUNT", 10)
	viper.SetDefault("FEED_RANDOM_COUNT", 5)
	viper.SetDefault("FEED_TRENDING_WINDOW_HOURS", 48)
	viper.SetDefault("FEED_DIVERSITY_WINDOW", 3)
	viper.SetDefault("FEED_MIN_AFFINITY_THRESHOLD", 1)
	viper.SetDefault("FEED_TOPIC_HASHTAG_LIMIT", 10)
	viper.SetDefault("FEED_REENGAGE_AFTER_HOURS", 168)
	viper.SetDefault("FEED_SNAPSHOT_READS", true)
	viper.SetDefault("FEED_SEEN_TTL_MINUTES", 60)
}

// IsProduction reports whether the app runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == "your-secret-key-change-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return c.FeedConfig.Validate()
}

// Validate checks the ranking knobs for values that would break the pipeline.
func (f FeedConfig) Validate() error {
	switch {
	case f.CandidatePoolSize <= 0:
		return errors.New("FEED_CANDIDATE_POOL_SIZE must be positive")
	case f.TimeDecayFactor <= 0:
		return errors.New("FEED_TIME_DECAY_FACTOR must be positive")
	case f.PageSize <= 0:
		return errors.New("FEED_PAGE_SIZE must be positive")
	case f.MaxPageSize < f.PageSize:
		return errors.New("FEED_MAX_PAGE_SIZE must be at least FEED_PAGE_SIZE")
	case f.MinRemainingForCache < 0:
		return errors.New("FEED_MIN_REMAINING_FOR_CACHE must not be negative")
	case f.DiversityWindow < 0:
		return errors.New("FEED_DIVERSITY_WINDOW must not be negative")
	case f.TrendingWindowHours <= 0:
		return errors.New("FEED_TRENDING_WINDOW_HOURS must be positive")
	case f.ReEngageAfterHours <= 0:
		return errors.New("FEED_REENGAGE_AFTER_HOURS must be positive")
	case f.SourceWeightFriend <= 0 || f.SourceWeightTopic <= 0 ||
		f.SourceWeightTrending <= 0 || f.SourceWeightDiscovery <= 0:
		return errors.New("FEED_SOURCE_WEIGHT_* must be positive")
	}
	return nil
}

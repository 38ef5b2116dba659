package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AI         AIConfig
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Storage    StorageConfig
	Tracing    TracingConfig   `mapstructure:"tracing"`
	CORS       CORSConfig      `mapstructure:"cors"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`

	// Runtime flags, set from the command line rather than the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// EvaluationConfig holds the runtime knobs of the batch evaluation pipeline.
// The delay and timeout fields carry plain integer units so a YAML value like
// "2" cannot be scaled twice on the way in.
type EvaluationConfig struct {
	ChunkSize             int `mapstructure:"chunk_size"`
	QuestionDelaySeconds  int `mapstructure:"question_delay_seconds"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	RunLockTTLMinutes     int `mapstructure:"run_lock_ttl_minutes"`
}

func (c EvaluationConfig) QuestionDelay() time.Duration {
	return time.Duration(c.QuestionDelaySeconds) * time.Second
}

func (c EvaluationConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c EvaluationConfig) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLMinutes) * time.Minute
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ANSWER_EVAL")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// AI
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Evaluation
	viper.BindEnv("evaluation.chunk_size", "EVAL_CHUNK_SIZE")
	viper.BindEnv("evaluation.question_delay_seconds", "EVAL_QUESTION_DELAY_SECONDS")
	viper.BindEnv("evaluation.request_timeout_seconds", "EVAL_REQUEST_TIMEOUT_SECONDS")
	viper.BindEnv("evaluation.run_lock_ttl_minutes", "EVAL_RUN_LOCK_TTL_MINUTES")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	viper.SetDefault("evaluation.chunk_size", 10)
	viper.SetDefault("evaluation.question_delay_seconds", 2)
	viper.SetDefault("evaluation.request_timeout_seconds", 60)
	viper.SetDefault("evaluation.run_lock_ttl_minutes", 60)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// A bad chunk size or delay would corrupt every run, so refuse to start.
	if cfg.Evaluation.ChunkSize <= 0 {
		return nil, fmt.Errorf("evaluation.chunk_size must be positive, got %d", cfg.Evaluation.ChunkSize)
	}
	if cfg.Evaluation.QuestionDelaySeconds < 0 {
		return nil, fmt.Errorf("evaluation.question_delay_seconds must not be negative")
	}
	if cfg.Evaluation.RunLockTTLMinutes <= 0 {
		return nil, fmt.Errorf("evaluation.run_lock_ttl_minutes must be positive, got %d", cfg.Evaluation.RunLockTTLMinutes)
	}
	if cfg.Server.Mode == "release" && cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key must be set in release mode")
	}

	return &cfg, nil
}

// Package config defines the configuration structures for the ForestRights-DSS
// service. No I/O lives in this file, only data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
)

// Model artifact backends.
const (
	BackendFilesystem = "filesystem"
	BackendMinIO      = "minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// AllowedOrigins enables CORS for the listed browser origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ModelsConfig controls training, persistence and retrieval of the decision
// models.
type ModelsConfig struct {
	Backend string `mapstructure:"backend"` // filesystem | minio
	Dir     string `mapstructure:"dir"`
	Prefix  string `mapstructure:"prefix"`

	CorpusSize    int   `mapstructure:"corpus_size"`
	TrainingSeed  int64 `mapstructure:"training_seed"`
	ReferenceSize int   `mapstructure:"reference_size"`
	ReferenceSeed int64 `mapstructure:"reference_seed"`
	MaxFeatures   int   `mapstructure:"max_features"`
	TopK          int   `mapstructure:"top_k"`

	// WarmUp runs load-or-train when the server starts instead of on the
	// first request.
	WarmUp          bool          `mapstructure:"warm_up"`
	TrainingLockTTL time.Duration `mapstructure:"training_lock_ttl"`
}

// MinIOConfig holds object storage parameters for the minio backend.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// RedisConfig holds Redis parameters. Redis only serialises training across
// replicas, so it is optional.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds analysis-event publishing parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	RequiredAcks string        `mapstructure:"required_acks"` // none | one | all
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Log     logging.LogConfig `mapstructure:"log"`
	Models  ModelsConfig      `mapstructure:"models"`
	MinIO   MinIOConfig       `mapstructure:"minio"`
	Redis   RedisConfig       `mapstructure:"redis"`
	Kafka   KafkaConfig       `mapstructure:"kafka"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

// Validate checks cross-field consistency. It expects ApplyDefaults to have
// run already.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q must be debug, release or test", c.Server.Mode)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q must be json or console", c.Log.Format)
	}

	switch c.Models.Backend {
	case BackendFilesystem:
		if strings.TrimSpace(c.Models.Dir) == "" {
			return fmt.Errorf("config: models.dir is required for the filesystem backend")
		}
	case BackendMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("config: models.backend %q must be %s or %s", c.Models.Backend, BackendFilesystem, BackendMinIO)
	}
	if c.Models.CorpusSize < 10 {
		return fmt.Errorf("config: models.corpus_size must be at least 10, got %d", c.Models.CorpusSize)
	}
	if c.Models.ReferenceSize < 1 {
		return fmt.Errorf("config: models.reference_size must be positive, got %d", c.Models.ReferenceSize)
	}
	if c.Models.TopK < 1 {
		return fmt.Errorf("config: models.top_k must be positive, got %d", c.Models.TopK)
	}
	if c.Models.MaxFeatures < 1 {
		return fmt.Errorf("config: models.max_features must be positive, got %d", c.Models.MaxFeatures)
	}

	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("config: redis.addrs is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}

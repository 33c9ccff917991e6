package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8000
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 120 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxBodySize     = 1 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultModelsBackend   = BackendFilesystem
	DefaultModelsDir       = "./models"
	DefaultModelsPrefix    = "dss-models"
	DefaultCorpusSize      = 2000
	DefaultTrainingSeed    = 42
	DefaultReferenceSize   = 100
	DefaultReferenceSeed   = 42
	DefaultMaxFeatures     = 1000
	DefaultTopK            = 5
	DefaultTrainingLockTTL = 5 * time.Minute

	DefaultMinIORegion = "us-east-1"
	DefaultMinIOBucket = "fra-models"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "fradss"

	DefaultKafkaTopic        = "fra.claim.analyzed"
	DefaultKafkaClientID     = "fradss"
	DefaultKafkaRequiredAcks = "one"
	DefaultKafkaBatchTimeout = 50 * time.Millisecond
	DefaultKafkaWriteTimeout = 10 * time.Second

	DefaultMetricsNamespace = "fradss"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills zero-value fields in cfg. Explicit values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Models ────────────────────────────────────────────────────────────────
	if cfg.Models.Backend == "" {
		cfg.Models.Backend = DefaultModelsBackend
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = DefaultModelsDir
	}
	if cfg.Models.Prefix == "" {
		cfg.Models.Prefix = DefaultModelsPrefix
	}
	if cfg.Models.CorpusSize == 0 {
		cfg.Models.CorpusSize = DefaultCorpusSize
	}
	if cfg.Models.TrainingSeed == 0 {
		cfg.Models.TrainingSeed = DefaultTrainingSeed
	}
	if cfg.Models.ReferenceSize == 0 {
		cfg.Models.ReferenceSize = DefaultReferenceSize
	}
	if cfg.Models.ReferenceSeed == 0 {
		cfg.Models.ReferenceSeed = DefaultReferenceSeed
	}
	if cfg.Models.MaxFeatures == 0 {
		cfg.Models.MaxFeatures = DefaultMaxFeatures
	}
	if cfg.Models.TopK == 0 {
		cfg.Models.TopK = DefaultTopK
	}
	if cfg.Models.TrainingLockTTL == 0 {
		cfg.Models.TrainingLockTTL = DefaultTrainingLockTTL
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if len(cfg.Redis.Addrs) == 0 {
		cfg.Redis.Addrs = []string{DefaultRedisAddr}
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = DefaultKafkaRequiredAcks
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefaultConfig returns a Config with every default applied. Useful for
// tests and for the CLI when no file is given.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

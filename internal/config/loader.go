package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by every setting.
const envPrefix = "FRADSS"

// newViper builds a Viper instance with YAML parsing, FRADSS_ env binding and
// a "." → "_" key replacer, so "models.corpus_size" resolves from
// FRADSS_MODELS_CORPUS_SIZE.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// registerDefaults makes every key known to viper. AutomaticEnv only
// consults the environment for keys viper already knows about, so without
// this a config-less LoadFromEnv would ignore FRADSS_* variables.
func registerDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("models.backend", d.Models.Backend)
	v.SetDefault("models.dir", d.Models.Dir)
	v.SetDefault("models.prefix", d.Models.Prefix)
	v.SetDefault("models.corpus_size", d.Models.CorpusSize)
	v.SetDefault("models.training_seed", d.Models.TrainingSeed)
	v.SetDefault("models.reference_size", d.Models.ReferenceSize)
	v.SetDefault("models.reference_seed", d.Models.ReferenceSeed)
	v.SetDefault("models.max_features", d.Models.MaxFeatures)
	v.SetDefault("models.top_k", d.Models.TopK)
	v.SetDefault("models.warm_up", false)
	v.SetDefault("models.training_lock_ttl", d.Models.TrainingLockTTL)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", d.MinIO.Region)
	v.SetDefault("minio.bucket", d.MinIO.Bucket)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addrs", d.Redis.Addrs)
	v.SetDefault("redis.master_name", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.required_acks", d.Kafka.RequiredAcks)
	v.SetDefault("kafka.batch_timeout", d.Kafka.BatchTimeout)
	v.SetDefault("kafka.write_timeout", d.Kafka.WriteTimeout)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Load reads the YAML file at configPath, merges FRADSS_* overrides, applies
// defaults and validates.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from FRADSS_* environment variables only.
//
//	FRADSS_<SECTION>_<FIELD>   e.g.  FRADSS_MODELS_BACKEND, FRADSS_KAFKA_BROKERS
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch invokes onChange with the re-parsed Config whenever configPath is
// written. Invalid intermediate states are reported to onError and skipped.
// Only the log level is meant to be applied at runtime.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad wraps Load and panics on error. main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

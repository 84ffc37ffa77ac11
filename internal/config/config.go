package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Relay    RelayConfig    `mapstructure:"relay"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines how session tokens are validated. The engine never
// issues tokens; it only extracts the owner id from ones issued elsewhere.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// Token is this session's bearer token. Empty means anonymous.
	Token string `mapstructure:"token"`
}

// SyncConfig tunes the orchestrator's timers and the local cache location.
type SyncConfig struct {
	// Interval between background push-then-pull cycles while dirty.
	Interval time.Duration `mapstructure:"interval"`
	// FallbackPollInterval between fetch-and-merge polls while the
	// realtime channel is disconnected.
	FallbackPollInterval time.Duration `mapstructure:"fallback_poll_interval"`
	// ShutdownFlushTimeout bounds the final remote write on exit.
	ShutdownFlushTimeout time.Duration `mapstructure:"shutdown_flush_timeout"`
	// CachePath is the local write-through cache file.
	CachePath string `mapstructure:"cache_path"`
}

// RelayConfig points a session at the realtime relay. An empty URL disables
// realtime entirely and leaves the fallback poll in charge.
type RelayConfig struct {
	URL string `mapstructure:"url"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Nested keys map to env vars as sync.interval -> SYNC_INTERVAL.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "mindtrack_default")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("sync.interval", "15s")
	viper.SetDefault("sync.fallback_poll_interval", "30s")
	viper.SetDefault("sync.shutdown_flush_timeout", "3s")
	viper.SetDefault("sync.cache_path", "mindtrack_cache.json")

	err = viper.ReadInConfig()
	// Missing config file is fine; defaults and env vars carry the load.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}

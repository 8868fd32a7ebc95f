package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config is read once at startup from an optional config.yaml plus
 * DISPATCHER_* environment variables. Every key has a default except the
 * provider secret, without which no inbound event can be verified.
 */

type Config struct {
	ListenAddr       string `mapstructure:"LISTEN_ADDR"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	ProviderName     string `mapstructure:"PROVIDER_NAME"`
	ProviderSecret   string `mapstructure:"PROVIDER_SECRET"`
	SignatureHeader  string `mapstructure:"SIGNATURE_HEADER"`
	SubscribersFile  string `mapstructure:"SUBSCRIBERS_FILE"`
	ResolveTimeoutMS int    `mapstructure:"RESOLVE_TIMEOUT_MS"`
	ForwardTimeoutMS int    `mapstructure:"FORWARD_TIMEOUT_MS"`
	AdminAPIKey      string `mapstructure:"ADMIN_API_KEY"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	SQLitePath       string `mapstructure:"SQLITE_PATH"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("DISPATCHER")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PROVIDER_NAME", "paystack")
	v.SetDefault("PROVIDER_SECRET", "")
	v.SetDefault("SIGNATURE_HEADER", "x-paystack-signature")
	v.SetDefault("SUBSCRIBERS_FILE", "subscribers.yaml")
	v.SetDefault("RESOLVE_TIMEOUT_MS", 5000)
	v.SetDefault("FORWARD_TIMEOUT_MS", 30000)
	v.SetDefault("ADMIN_API_KEY", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SQLITE_PATH", "")

	if err := v.ReadInConfig(); err != nil {
		// the config file is optional, defaults plus env are enough
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// Validate checks the keys the dispatch pipeline cannot run without
func (c *Config) Validate() error {
	if c.ProviderSecret == "" {
		return errors.New("PROVIDER_SECRET is required")
	}
	if c.ProviderName == "" {
		return errors.New("PROVIDER_NAME must not be empty")
	}
	if c.SignatureHeader == "" {
		return errors.New("SIGNATURE_HEADER must not be empty")
	}
	return nil
}

// ResolveTimeout is the default per-subscriber ownership lookup timeout
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutMS) * time.Millisecond
}

// ForwardTimeout is the default per-subscriber forward timeout
func (c *Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutMS) * time.Millisecond
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	HTTPAddr string `mapstructure:"httpAddr"`
}

type DatabaseConfig struct {
	MongoURI string `mapstructure:"mongoURI"`
	Name     string `mapstructure:"name"`
}

type SyncConfig struct {
	// ProviderTimeout bounds a single outbound provider REST call.
	ProviderTimeout time.Duration `mapstructure:"providerTimeout"`
	// RunMigration controls the one-time legacy link backfill at startup.
	RunMigration bool `mapstructure:"runMigration"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP trace collector address. Empty disables
	// trace export.
	OTLPEndpoint string `mapstructure:"otlpEndpoint"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("KANEO_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("app.httpAddr", ":8090")
	viper.SetDefault("database.mongoURI", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "kaneo-sync")
	viper.SetDefault("sync.providerTimeout", 30*time.Second)
	viper.SetDefault("sync.runMigration", true)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("telemetry.otlpEndpoint", "")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Database.MongoURI == "" {
		return fmt.Errorf("database.mongoURI must be set")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name must be set")
	}
	if c.Sync.ProviderTimeout <= 0 {
		return fmt.Errorf("sync.providerTimeout must be positive, got %s", c.Sync.ProviderTimeout)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

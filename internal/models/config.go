package models

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Seed                   int           `mapstructure:"seed"`
	SweepInterval          time.Duration `mapstructure:"sweep_interval"`
	SweepRetryBackoff      time.Duration `mapstructure:"sweep_retry_backoff"`
	DefaultSearchRadiusKm  float64       `mapstructure:"default_search_radius_km"`
	DefaultCommissionRate  float64       `mapstructure:"default_commission_rate"`
	KafkaEnabled           bool          `mapstructure:"kafka_enabled"`
	KafkaBrokerList        string        `mapstructure:"kafka_broker_list"`
	SessionTimeoutMs       int           `mapstructure:"session_timeout_ms"`
	PostgresEnabled        bool          `mapstructure:"postgres_enabled"`
	DatabaseURL            string        `mapstructure:"database_url"`
	OutputFile             string        `mapstructure:"output_file"`
	NotificationBufferSize int           `mapstructure:"notification_buffer_size"`

	// Demo seeding
	SeedDemo     bool    `mapstructure:"seed_demo"`
	DemoOffers   int     `mapstructure:"demo_offers"`
	DemoRequests int     `mapstructure:"demo_requests"`
	CityLat      float64 `mapstructure:"city_latitude"`
	CityLon      float64 `mapstructure:"city_longitude"`
	CityRadiusKm float64 `mapstructure:"city_radius_km"`
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.AutomaticEnv() // Read in environment variables that match

	viper.SetDefault("sweep_interval", "30s")
	viper.SetDefault("sweep_retry_backoff", "5s")
	viper.SetDefault("notification_buffer_size", 16)
	viper.SetDefault("city_radius_km", 8.0)

	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &config, nil
}

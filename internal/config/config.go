package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/SumanthNagolu/intime-v3-sub032/sla"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`
	Env         string `mapstructure:"env"`

	// SLA worker
	Worker WorkerConfig `mapstructure:"worker"`

	// Cache for per-organization business hours
	BusinessHoursCacheTTL time.Duration `mapstructure:"business_hours_cache_ttl"`

	// Default business hours for organizations without their own settings
	BusinessHours BusinessHoursDefaults `mapstructure:"business_hours"`
}

type WorkerConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	BatchSize         int           `mapstructure:"batch_size"`
	NotificationQueue string        `mapstructure:"notification_queue"`
}

type BusinessHoursDefaults struct {
	StartHour       int      `mapstructure:"start_hour"`
	EndHour         int      `mapstructure:"end_hour"`
	Timezone        string   `mapstructure:"timezone"`
	ExcludeWeekends bool     `mapstructure:"exclude_weekends"`
	Holidays        []string `mapstructure:"holidays"`
}

// DefaultBusinessHours returns the configured fallback as a calculator config.
// Every call returns a fresh value.
func (c Config) DefaultBusinessHours() sla.BusinessHoursConfig {
	holidays := make([]string, len(c.BusinessHours.Holidays))
	copy(holidays, c.BusinessHours.Holidays)
	return sla.BusinessHoursConfig{
		StartHour:       c.BusinessHours.StartHour,
		EndHour:         c.BusinessHours.EndHour,
		Timezone:        c.BusinessHours.Timezone,
		ExcludeWeekends: c.BusinessHours.ExcludeWeekends,
		Holidays:        holidays,
	}
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (local development convenience)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	defaults := sla.DefaultBusinessHours()
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("worker.interval", "30s")
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("worker.notification_queue", "sla_notifications")
	v.SetDefault("business_hours_cache_ttl", "10m")
	v.SetDefault("business_hours.start_hour", defaults.StartHour)
	v.SetDefault("business_hours.end_hour", defaults.EndHour)
	v.SetDefault("business_hours.timezone", defaults.Timezone)
	v.SetDefault("business_hours.exclude_weekends", defaults.ExcludeWeekends)
	v.SetDefault("business_hours.holidays", []string{})

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config") // Look for dev.config.yaml
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("sla")

	// Bind standard environment variables (Docker/deploy compatibility)
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("env", "SLA_ENV")

	_ = v.BindEnv("worker.interval", "SLA_WORKER_INTERVAL")
	_ = v.BindEnv("worker.batch_size", "SLA_WORKER_BATCH_SIZE")
	_ = v.BindEnv("worker.notification_queue", "SLA_NOTIFICATION_QUEUE")
	_ = v.BindEnv("business_hours_cache_ttl", "SLA_BUSINESS_HOURS_CACHE_TTL")

	_ = v.BindEnv("business_hours.start_hour", "BUSINESS_START_HOUR")
	_ = v.BindEnv("business_hours.end_hour", "BUSINESS_END_HOUR")
	_ = v.BindEnv("business_hours.timezone", "BUSINESS_TIMEZONE")
	_ = v.BindEnv("business_hours.exclude_weekends", "BUSINESS_EXCLUDE_WEEKENDS")
	_ = v.BindEnv("business_hours.holidays", "BUSINESS_HOLIDAYS")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	App = cfg

	// 3. Backfill environment variables for the migrate command, which reads os.Getenv directly
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)

	if err := App.DefaultBusinessHours().Validate(); err != nil {
		log.Printf("Warning: default business hours are invalid: %v", err)
	}

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

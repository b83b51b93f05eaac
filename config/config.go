package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// MongoDB connection for the booking records store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisBookingDB int    `mapstructure:"REDIS_BOOKING_DB"`

	// Stripe secret key for the payment processor.
	StripeKey string `mapstructure:"STRIPE_KEY"`
	// TLSTerminated declares that a proxy terminates TLS in front of the
	// server. Without it, a production deployment refuses payment
	// operations over its own plaintext listener.
	TLSTerminated bool `mapstructure:"TLS_TERMINATED"`

	// Upstream provider endpoints.
	AvailabilityAPIURL string `mapstructure:"AVAILABILITY_API_URL"`
	PricingAPIURL      string `mapstructure:"PRICING_API_URL"`
	BookingAPIURL      string `mapstructure:"BOOKING_API_URL"`

	// Cache TTLs.
	AvailabilityCacheTTL  time.Duration `mapstructure:"AVAILABILITY_CACHE_TTL"`
	PricingCacheTTL       time.Duration `mapstructure:"PRICING_CACHE_TTL"`
	BookingDetailCacheTTL time.Duration `mapstructure:"BOOKING_DETAIL_CACHE_TTL"`

	// Availability resolver debounce window.
	DebounceInterval time.Duration `mapstructure:"DEBOUNCE_INTERVAL"`

	// Per-call-class timeout budgets.
	AvailabilityTimeout time.Duration `mapstructure:"AVAILABILITY_TIMEOUT"`
	PricingTimeout      time.Duration `mapstructure:"PRICING_TIMEOUT"`
	SubmissionTimeout   time.Duration `mapstructure:"SUBMISSION_TIMEOUT"`

	// Per-client rate limits.
	AvailabilityRatePerMin int `mapstructure:"AVAILABILITY_RATE_PER_MIN"`
	BookingCreatePer10Min  int `mapstructure:"BOOKING_CREATE_PER_10MIN"`
	ModificationPerHour    int `mapstructure:"MODIFICATION_PER_HOUR"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_BOOKING_DB", 1)
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("TLS_TERMINATED", false)
	viper.SetDefault("AVAILABILITY_API_URL", "http://localhost:9001")
	viper.SetDefault("PRICING_API_URL", "http://localhost:9002")
	viper.SetDefault("BOOKING_API_URL", "http://localhost:9003")
	viper.SetDefault("AVAILABILITY_CACHE_TTL", "5m")
	viper.SetDefault("PRICING_CACHE_TTL", "5m")
	viper.SetDefault("BOOKING_DETAIL_CACHE_TTL", "1h")
	viper.SetDefault("DEBOUNCE_INTERVAL", "500ms")
	viper.SetDefault("AVAILABILITY_TIMEOUT", "3s")
	viper.SetDefault("PRICING_TIMEOUT", "2s")
	viper.SetDefault("SUBMISSION_TIMEOUT", "5s")
	viper.SetDefault("AVAILABILITY_RATE_PER_MIN", 20)
	viper.SetDefault("BOOKING_CREATE_PER_10MIN", 5)
	viper.SetDefault("MODIFICATION_PER_HOUR", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

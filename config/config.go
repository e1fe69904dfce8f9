package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Marketplace REST backend (bookings, listings, payments, reviews).
	BackendAPI         string `mapstructure:"BACKEND_API"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// MongoDB holds the negotiation action ledger.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr              string `mapstructure:"REDIS_ADDR"`
	RedisPassword          string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB           int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB           int    `mapstructure:"REDIS_QUEUE_DB"`
	ListingCacheTTLSeconds int    `mapstructure:"LISTING_CACHE_TTL_SECONDS"`

	// Message feed: "firestore" or "memory".
	FeedBackend             string `mapstructure:"FEED_BACKEND"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`

	// Payments: "backend" records directly, "stripe" charges a card first.
	PaymentProvider string `mapstructure:"PAYMENT_PROVIDER"`
	StripeKey       string `mapstructure:"STRIPE_KEY"`
	PaymentCurrency string `mapstructure:"PAYMENT_CURRENCY"`
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
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("BACKEND_API", "http://localhost:5000/api")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "rentathing")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("LISTING_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("FEED_BACKEND", "firestore")
	viper.SetDefault("FIREBASE_PROJECT_ID", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_PATH", "serviceAccountKey.json")
	viper.SetDefault("PAYMENT_PROVIDER", "backend")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("PAYMENT_CURRENCY", "usd")

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

// HTTPTimeout is the per-request timeout for backend API calls.
func HTTPTimeout() time.Duration {
	if AppConfig.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(AppConfig.HTTPTimeoutSeconds) * time.Second
}

// ListingCacheTTL is how long a fetched listing stays cached.
func ListingCacheTTL() time.Duration {
	return time.Duration(AppConfig.ListingCacheTTLSeconds) * time.Second
}

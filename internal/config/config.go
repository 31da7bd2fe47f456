// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
// It is constructed once at startup and passed by reference; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FrontendURL    string `mapstructure:"FRONTEND_URL"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTAlgorithm     string `mapstructure:"JWT_ALG"`
	AccessTokenMin   int    `mapstructure:"ACCESS_TOKEN_MIN"`
	RefreshTokenDays int    `mapstructure:"REFRESH_TOKEN_DAYS"`

	CookieDomain      string `mapstructure:"COOKIE_DOMAIN"`
	CookieSecure      bool   `mapstructure:"COOKIE_SECURE"`
	CookieSameSite    string `mapstructure:"COOKIE_SAMESITE"`
	AccessCookieName  string `mapstructure:"ACCESS_COOKIE_NAME"`
	RefreshCookieName string `mapstructure:"REFRESH_COOKIE_NAME"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	MemoryContextSize int `mapstructure:"MEMORY_CONTEXT_SIZE"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMin) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge profile config 'config.%s.yml': %w", env, err)
			}
		}
	}

	viper.SetDefault("PORT", "8000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")

	viper.SetDefault("JWT_SECRET", "dev-secret-change")
	viper.SetDefault("JWT_ALG", "HS256")
	viper.SetDefault("ACCESS_TOKEN_MIN", 15)
	viper.SetDefault("REFRESH_TOKEN_DAYS", 14)

	viper.SetDefault("COOKIE_DOMAIN", "")
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("COOKIE_SAMESITE", "lax")
	viper.SetDefault("ACCESS_COOKIE_NAME", "access_token")
	viper.SetDefault("REFRESH_COOKIE_NAME", "refresh_token")

	viper.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8000/auth/google/callback")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash-lite")
	viper.SetDefault("MEMORY_CONTEXT_SIZE", 5)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "dreamscope")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !strings.HasPrefix(c.JWTAlgorithm, "HS") {
		return fmt.Errorf("unsupported JWT_ALG %q: only HMAC algorithms are supported", c.JWTAlgorithm)
	}
	if c.AccessTokenMin <= 0 {
		return errors.New("ACCESS_TOKEN_MIN must be positive")
	}
	if c.RefreshTokenDays <= 0 {
		return errors.New("REFRESH_TOKEN_DAYS must be positive")
	}
	switch c.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid COOKIE_SAMESITE %q: must be lax, strict or none", c.CookieSameSite)
	}
	if c.MemoryContextSize < 0 {
		return errors.New("MEMORY_CONTEXT_SIZE must not be negative")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if c.JWTSecret == "dev-secret-change" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if !c.CookieSecure {
			log.Println("WARNING: COOKIE_SECURE is false in production. Credential cookies will be sent over plain HTTP.")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else {
		if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// API contains API server configuration
	API APIConfig
	// Auth contains authentication configuration
	Auth AuthConfig
	// Database contains database configuration
	Database DatabaseConfig
	// Redis contains revocation store configuration
	Redis RedisConfig
	// Email contains email service configuration
	Email EmailConfig
	// RateLimit contains per-endpoint-class rate limit configuration
	RateLimit RateLimitConfig
}

// APIConfig contains API server settings
type APIConfig struct {
	// Port is the server port to listen on
	Port string
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// AccessSecret signs access tokens
	AccessSecret string
	// RefreshSecret signs refresh tokens; intentionally distinct from
	// AccessSecret so one leaked key cannot forge the other token type
	RefreshSecret string
	// AccessTokenDuration is the access token lifetime
	AccessTokenDuration time.Duration
	// RefreshTokenDuration is the refresh token lifetime
	RefreshTokenDuration time.Duration
	// SingleSession deactivates all prior sessions on every new login when
	// set. Off by default so a user can stay signed in on phone and laptop
	// at once.
	SingleSession bool
	// PasswordMinLength is the minimum accepted password length
	PasswordMinLength int
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string
	// Port is the database server port
	Port int
	// User is the database username
	User string
	// Password is the database password
	Password string
	// DBName is the database name
	DBName string
	// SSLMode is the SSL mode for the database connection
	SSLMode string
	// MigrationsPath is the path to database migrations
	MigrationsPath string
}

// RedisConfig contains settings for the token revocation store
type RedisConfig struct {
	// Addr is the host:port of the Redis server
	Addr string
	// Password is the Redis auth password, empty when auth is disabled
	Password string
	// DB is the Redis database number
	DB int
	// KeyPrefix namespaces all keys written by this service
	KeyPrefix string
}

// EmailConfig contains email service settings
type EmailConfig struct {
	// SMTPHost is the SMTP server hostname
	SMTPHost string
	// SMTPPort is the SMTP server port
	SMTPPort int
	// SMTPUsername is the SMTP authentication username
	SMTPUsername string
	// SMTPPassword is the SMTP authentication password
	SMTPPassword string
	// FromAddress is the email address used as sender
	FromAddress string
	// AppURL is the base URL used in verification and reset links
	AppURL string
	// SendTimeout bounds each outbound send so a stalled SMTP server never
	// blocks anything else
	SendTimeout time.Duration
}

// RateLimitPolicy describes one endpoint class: at most Requests per Window
// from a single client IP
type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

// RateLimitConfig holds the per-endpoint-class limits
type RateLimitConfig struct {
	Login         RateLimitPolicy
	Register      RateLimitPolicy
	PasswordReset RateLimitPolicy
	Verification  RateLimitPolicy
	General       RateLimitPolicy
}

// LoadFromEnv retrieves configuration from environment variables
func (c *Config) LoadFromEnv() error {
	c.API = APIConfig{
		Port: getEnvOrDefault("API_PORT", "8080"),
	}
	c.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "motolens"),
		SSLMode:        getEnvOrDefault("DB_SSL_MODE", "disable"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
	}
	c.Redis = RedisConfig{
		Addr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        getEnvAsInt("REDIS_DB", 0),
		KeyPrefix: getEnvOrDefault("REDIS_KEY_PREFIX", "motolens"),
	}
	c.Auth = AuthConfig{
		AccessSecret:         os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:        os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		SingleSession:        getEnvAsBool("AUTH_SINGLE_SESSION", false),
		PasswordMinLength:    getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
	}
	c.Email = EmailConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromAddress:  os.Getenv("SMTP_FROM"),
		AppURL:       os.Getenv("APP_URL"),
		SendTimeout:  getEnvAsDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),
	}
	c.RateLimit = RateLimitConfig{
		Login:         RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_LOGIN", 10), Window: 15 * time.Minute},
		Register:      RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_REGISTER", 5), Window: time.Hour},
		PasswordReset: RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_RESET", 3), Window: time.Hour},
		Verification:  RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_VERIFY", 10), Window: time.Hour},
		General:       RateLimitPolicy{Requests: getEnvAsInt("RATE_LIMIT_GENERAL", 1000), Window: time.Minute},
	}

	// Validate required fields
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return nil
}

// getEnvAsInt retrieves an environment variable and converts it to an integer
func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvAsBool retrieves an environment variable and converts it to a boolean
func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsDuration retrieves an environment variable and parses it as a duration
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// MFA
	MFAIssuer          string
	MFAEncryptionKey   []byte // 32 bytes, AES-256
	PendingSessionTTL  time.Duration
	RecoveryVerifyTTL  time.Duration
	RecoveryResetTTL   time.Duration
	ActivationTokenTTL time.Duration

	// Rate limiting
	LoginRateLimit int // requests per minute per IP
	MFARateLimit   int

	// SMTP (optional: tokens are logged when unset)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	EmailBaseURL string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "nexauth"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "nexauth"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		// MFA defaults
		MFAIssuer:          getEnv("MFA_ISSUER", "NexAuth"),
		PendingSessionTTL:  getEnvDuration("PENDING_SESSION_TTL", 5*time.Minute),
		RecoveryVerifyTTL:  getEnvDuration("RECOVERY_VERIFY_TTL", 30*time.Minute),
		RecoveryResetTTL:   getEnvDuration("RECOVERY_RESET_TTL", 10*time.Minute),
		ActivationTokenTTL: getEnvDuration("ACTIVATION_TOKEN_TTL", 24*time.Hour),

		// Rate limit defaults
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
		MFARateLimit:   getEnvInt("MFA_RATE_LIMIT", 10),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "no-reply@localhost"),
		EmailBaseURL: getEnv("EMAIL_BASE_URL", "http://localhost:8080"),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	keyHex := getEnv("MFA_ENCRYPTION_KEY", "")
	if keyHex == "" {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	cfg.MFAEncryptionKey = key

	return cfg, nil
}

// HasSMTP returns true if outbound email is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

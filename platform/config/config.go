// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for outbound SMTP email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMSConfig provides settings for the SMS gateway client.
type SMSConfig interface {
	GetSMSGatewayURL() string
	GetSMSGatewayKey() string
	GetSMSFromNumber() string
}

// AIConfig provides settings for the AI completion provider.
type AIConfig interface {
	GetAIAPIKey() string
	GetAIBaseURL() string
	GetAIModel() string
	GetAITimeout() time.Duration
	IsAIEnabled() bool
}

// CalendarConfig provides settings for the calendar provider client.
type CalendarConfig interface {
	GetCalendarURL() string
	GetCalendarAPIKey() string
	GetCalendarID() string
	GetBookingTimezone() string
}

// SchedulerConfig provides settings for background task processing.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SweepConfig provides settings for the stale-lead sweep.
type SweepConfig interface {
	GetStaleAfter() time.Duration
	GetSweepInterval() time.Duration
}

// ConversationConfig provides timeout and retry settings for conversation turns.
type ConversationConfig interface {
	GetAITimeout() time.Duration
	GetSendTimeout() time.Duration
	GetSendMaxAttempts() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	SMSGatewayURL string
	SMSGatewayKey string
	SMSFromNumber string

	AIAPIKey  string
	AIBaseURL string
	AIModel   string
	AITimeout time.Duration

	CalendarURL     string
	CalendarAPIKey  string
	CalendarID      string
	BookingTimezone string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	StaleAfter    time.Duration
	SweepInterval time.Duration

	SendTimeout     time.Duration
	SendMaxAttempts int
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetSMSGatewayURL() string { return c.SMSGatewayURL }
func (c *Config) GetSMSGatewayKey() string { return c.SMSGatewayKey }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }

func (c *Config) GetAIAPIKey() string         { return c.AIAPIKey }
func (c *Config) GetAIBaseURL() string        { return c.AIBaseURL }
func (c *Config) GetAIModel() string          { return c.AIModel }
func (c *Config) GetAITimeout() time.Duration { return c.AITimeout }
func (c *Config) IsAIEnabled() bool           { return c.AIAPIKey != "" }

func (c *Config) GetCalendarURL() string     { return c.CalendarURL }
func (c *Config) GetCalendarAPIKey() string  { return c.CalendarAPIKey }
func (c *Config) GetCalendarID() string      { return c.CalendarID }
func (c *Config) GetBookingTimezone() string { return c.BookingTimezone }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetStaleAfter() time.Duration    { return c.StaleAfter }
func (c *Config) GetSweepInterval() time.Duration { return c.SweepInterval }

func (c *Config) GetSendTimeout() time.Duration { return c.SendTimeout }
func (c *Config) GetSendMaxAttempts() int       { return c.SendMaxAttempts }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from environment variables.
// A .env file is loaded first when present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:     getListEnv("CORS_ORIGINS"),
		CORSAllowCreds:  getBoolEnv("CORS_ALLOW_CREDENTIALS", true),

		EmailEnabled:     getBoolEnv("EMAIL_ENABLED", false),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "LeadPilot"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@leadpilot.local"),

		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey: getEnv("SMS_GATEWAY_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),

		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AIBaseURL: getEnv("AI_BASE_URL", ""),
		AIModel:   getEnv("AI_MODEL", ""),
		AITimeout: getDurationEnv("AI_TIMEOUT", 20*time.Second),

		CalendarURL:     getEnv("CALENDAR_URL", ""),
		CalendarAPIKey:  getEnv("CALENDAR_API_KEY", ""),
		CalendarID:      getEnv("CALENDAR_ID", "primary"),
		BookingTimezone: getEnv("BOOKING_TIMEZONE", "America/New_York"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		StaleAfter:    getDurationEnv("LEAD_STALE_AFTER", 72*time.Hour),
		SweepInterval: getDurationEnv("LEAD_SWEEP_INTERVAL", time.Hour),

		SendTimeout:     getDurationEnv("CHANNEL_SEND_TIMEOUT", 10*time.Second),
		SendMaxAttempts: getIntEnv("CHANNEL_SEND_MAX_ATTEMPTS", 3),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

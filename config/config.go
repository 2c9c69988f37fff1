// config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// The single device identity this instance runs for
	UserID   string
	DeviceID string

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Monitoring settings
	EscalationWindow  time.Duration
	CommandPollSecs   int
	LocationRetention int // days
	BackgroundModes   []string

	// Platform drivers: "simulated" runs without device hardware
	PlatformProvider string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/aegis"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key"),

		UserID:   getEnv("AEGIS_USER_ID", "local-user"),
		DeviceID: getEnv("AEGIS_DEVICE_ID", "local-device"),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// Monitoring settings
		EscalationWindow:  time.Duration(getEnvAsInt("ESCALATION_WINDOW_MINUTES", 15)) * time.Minute,
		CommandPollSecs:   getEnvAsInt("COMMAND_POLL_SECONDS", 5),
		LocationRetention: getEnvAsInt("LOCATION_RETENTION_DAYS", 30),
		BackgroundModes:   getEnvAsSlice("BACKGROUND_MODES", []string{"location"}),

		PlatformProvider: getEnv("PLATFORM_PROVIDER", "simulated"),
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	return redis.NewClient(opt)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

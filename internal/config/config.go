package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lingofocus/internal/models"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	AudioPath   string
	AudioPlayer string
	CuePath     string

	GeminiAPIKey string
	GeminiModel  string
	GeminiUseADC bool

	AuthSecret string
	TokenTTL   time.Duration

	AWSRegion      string
	SESFromEmail   string
	BackupEmailTo  string
	BackupDir      string
	BackupInterval time.Duration

	RevealDelay      int
	AutoAdvanceDelay int
	BatchSize        int
	SpeakPrompt      bool

	Debug     bool
	PrettyLog bool
}

// Load reads configuration from .env and environment variables with sensible defaults
func Load() *Config {
	// A missing .env file is fine; the environment still applies
	_ = godotenv.Load()

	return &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./lingofocus.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AudioPath:   getEnv("AUDIO_PATH", "./data/audio"),
		AudioPlayer: getEnv("AUDIO_PLAYER", ""),
		CuePath:     getEnv("CUE_PATH", "./data/cues"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiUseADC: getEnvBool("GEMINI_USE_ADC", false),

		AuthSecret: getEnv("AUTH_SECRET", ""),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 720*time.Hour),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:   getEnv("SES_FROM_EMAIL", ""),
		BackupEmailTo:  getEnv("BACKUP_EMAIL_TO", ""),
		BackupDir:      getEnv("BACKUP_DIR", "./backups"),
		BackupInterval: getEnvDuration("BACKUP_INTERVAL", 24*time.Hour),

		RevealDelay:      getEnvInt("REVEAL_DELAY", 3),
		AutoAdvanceDelay: getEnvInt("AUTO_ADVANCE_DELAY", 3),
		BatchSize:        getEnvInt("BATCH_SIZE", 50),
		SpeakPrompt:      getEnvBool("SPEAK_PROMPT", false),

		Debug:     getEnvBool("DEBUG", false),
		PrettyLog: getEnvBool("PRETTY_LOG", false),
	}
}

// DefaultSettings returns the session settings seeded from the environment
func (c *Config) DefaultSettings() models.Settings {
	return models.Settings{
		RevealDelaySeconds:      c.RevealDelay,
		AutoAdvanceDelaySeconds: c.AutoAdvanceDelay,
		BatchSize:               c.BatchSize,
		SpeakPromptAloud:        c.SpeakPrompt,
	}.Normalize()
}

// AuthEnabled reports whether the HTTP API requires a bearer token
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("90m") and bare seconds ("3600")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

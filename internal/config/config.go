package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string
	Version     string
	CORSOrigins string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (replay guard; optional)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Coin economy
	DailyCheckInCoins     int
	PositiveMoodBonus     int
	JournalEntryCoins     int
	SurveyCompletionCoins int
	RecognitionCoins      int
	StreakBonuses         map[int]int

	// Company identity
	CompanyName string
	SystemEmail string

	// Email channel
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// WhatsApp Cloud API channel
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string

	// Slack channel
	SlackBotToken string

	// External channel dispatch timeout
	ChannelTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		CORSOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "wellnessai"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX_REQUESTS", 300),

		DailyCheckInCoins:     getEnvInt("DAILY_CHECKIN_COINS", 50),
		PositiveMoodBonus:     getEnvInt("POSITIVE_MOOD_BONUS", 25),
		JournalEntryCoins:     getEnvInt("JOURNAL_ENTRY_COINS", 25),
		SurveyCompletionCoins: getEnvInt("SURVEY_COMPLETION_COINS", 75),
		RecognitionCoins:      getEnvInt("RECOGNITION_COINS", 25),
		StreakBonuses: map[int]int{
			7:  getEnvInt("STREAK_BONUS_7", 100),
			30: getEnvInt("STREAK_BONUS_30", 500),
			90: getEnvInt("STREAK_BONUS_90", 1500),
		},

		CompanyName: getEnv("COMPANY_NAME", "WellnessAI"),
		SystemEmail: getEnv("SYSTEM_EMAIL", "noreply@wellnessai.app"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),

		SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),

		ChannelTimeout: parseDuration(getEnv("CHANNEL_TIMEOUT", "10s")),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AllowedOrigins splits the comma-separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	return strings.Split(c.CORSOrigins, ",")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

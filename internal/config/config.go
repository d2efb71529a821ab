package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	StoreBackend         string
	DatabaseURL          string
	MySQLDSN             string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AuthSecret           string
	AccessTokenTTL       time.Duration
	GeminiAPIKey         string
	GeminiModel          string
	SuggestionDelay      time.Duration
	SuggestionTimeout    time.Duration
	SuggestionCacheTTL   time.Duration
	StoreTimezone        string
	LogLevel             string
	SeedAdminPassword    string
	SeedUserPassword     string
	UsingDefaultPassword bool
}

// LoadDotEnv reads a .env file into the process environment when one exists.
// Variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	adminPwd := os.Getenv("SEED_ADMIN_PASSWORD")
	userPwd := os.Getenv("SEED_USER_PASSWORD")
	usingDefaults := adminPwd == "" || userPwd == ""
	if adminPwd == "" {
		adminPwd = "admin123"
	}
	if userPwd == "" {
		userPwd = "user123"
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		StoreBackend:         strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MySQLDSN:             os.Getenv("MYSQL_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		AuthSecret:           strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTL:       time.Duration(positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480)) * time.Minute,
		GeminiAPIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		SuggestionDelay:      time.Duration(positiveInt("SUGGESTION_DELAY_MS", 1000)) * time.Millisecond,
		SuggestionTimeout:    time.Duration(positiveInt("SUGGESTION_TIMEOUT_SECONDS", 10)) * time.Second,
		SuggestionCacheTTL:   time.Duration(positiveInt("SUGGESTION_CACHE_TTL_SECONDS", 120)) * time.Second,
		StoreTimezone:        getEnv("STORE_TIMEZONE", "Local"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		SeedAdminPassword:    adminPwd,
		SeedUserPassword:     userPwd,
		UsingDefaultPassword: usingDefaults,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves StoreTimezone, falling back to the process zone.
func (c Config) Location() *time.Location {
	if c.StoreTimezone == "" || strings.EqualFold(c.StoreTimezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

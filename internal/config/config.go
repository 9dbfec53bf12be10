// Package config loads process configuration from the environment.
// Values are read once at start; there is no reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

// Config holds everything the API server and the admin CLI need to connect
// to their collaborators.
type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTTTL    time.Duration

	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	S3Folder    string

	UploadDir string

	MailHost     string
	MailPort     int
	MailUser     string
	MailPassword string
	MailFrom     string

	TelegramToken  string
	TelegramChatID int64

	LogLevel  string
	LogFormat string

	LocalesDir  string
	CORSOrigins []string
}

// Load reads .env (if present) and the environment. A missing .env file is
// not an error; a missing JWT secret is.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

// LoadEnv is Load without the JWT secret requirement, for tools that never
// issue tokens.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "fixmycity"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=fixmycity port=5432 sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		S3Bucket:      getEnv("S3_BUCKET", "fixmycity"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:   os.Getenv("S3_PUBLIC_URL"),
		S3Folder:      getEnv("S3_FOLDER", ComplaintFolder),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MailHost:      getEnv("MAIL_HOST", "smtp.gmail.com"),
		MailUser:      os.Getenv("MAIL_USER"),
		MailPassword:  os.Getenv("MAIL_PASSWORD"),
		MailFrom:      getEnv("MAIL_FROM", os.Getenv("MAIL_USER")),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LocalesDir:    getEnv("LOCALES_DIR", "locales"),
		CORSOrigins:   getList("CORS_ORIGINS", "*"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MailPort, err = getInt("MAIL_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", DefaultTokenTTL); err != nil {
		return nil, err
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

// MailEnabled reports whether SMTP credentials were supplied.
func (c *Config) MailEnabled() bool {
	return c.MailUser != "" && c.MailPassword != ""
}

// TelegramEnabled reports whether complaint notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// getList splits a comma separated variable, dropping empty items.
func getList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

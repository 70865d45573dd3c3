package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string
	BotToken    string // пустой: бот не запускается, работает только HTTP API
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	HTTPDebug   bool   // echo debug: текст внутренних ошибок в ответах 500
	SentryDSN   string
	Release     string

	SessionTTL   time.Duration
	DBTimeout    time.Duration
	SeedDemo     bool   // заполнить пустую базу демо-данными
	DemoPassword string // пароль демо-аккаунтов

	BootstrapAdmin BootstrapAdmin
}

// BootstrapAdmin: админ, которого гарантированно создаём при старте.
type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

func (b BootstrapAdmin) Enabled() bool { return b.Email != "" && b.Password != "" }

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENV", "dev")
	v.SetDefault("HTTP_DEBUG", false)
	v.SetDefault("RELEASE", "dev")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("DB_TIMEOUT", 5*time.Second)
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("DEMO_PASSWORD", "demo1234")
	v.SetDefault("BOOTSTRAP_ADMIN_NAME", "Administrator")
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:  strings.TrimSpace(v.GetString("DATABASE_URL")),
		BotToken:     strings.TrimSpace(v.GetString("BOT_TOKEN")),
		HTTPAddr:     v.GetString("HTTP_ADDR"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		Env:          strings.ToLower(v.GetString("ENV")),
		HTTPDebug:    v.GetBool("HTTP_DEBUG"),
		SentryDSN:    v.GetString("SENTRY_DSN"),
		Release:      v.GetString("RELEASE"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		DBTimeout:    v.GetDuration("DB_TIMEOUT"),
		SeedDemo:     v.GetBool("SEED_DEMO"),
		DemoPassword: v.GetString("DEMO_PASSWORD"),
		BootstrapAdmin: BootstrapAdmin{
			Name:     v.GetString("BOOTSTRAP_ADMIN_NAME"),
			Email:    strings.ToLower(strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL"))),
			Password: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL: must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.Env != "prod" && cfg.Env != "dev" {
		return nil, fmt.Errorf("ENV: unknown environment %q", cfg.Env)
	}
	return cfg, nil
}

// .env необязателен: отсутствие файла не ошибка, битый файл даёт ошибку.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

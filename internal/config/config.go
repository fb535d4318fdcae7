// Package config собирает настройки процесса из .env и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Источники учётных данных и способы запроса данных для входа.
const (
	CredentialStoreEnv = "env"
	CredentialStoreDB  = "db"

	PromptConsole = "console"
	PromptPreset  = "preset"
	PromptHTTP    = "http"
)

// Config — все настройки процесса.
type Config struct {
	APIID    int
	APIHash  string
	Phone    string
	Password string
	Session  string
	Proxy    string

	BotToken string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	DBDriver    string
	DatabaseURL string

	CredentialStore string
	EnvFile         string

	Port     string
	APIToken string

	SummaryInterval  time.Duration
	RespectFrequency bool
	AuthPrompt       string
	LogLevel         string
}

// Load читает файл envFile (если он есть, переменные окружения важнее)
// и собирает конфигурацию. Пустой envFile означает ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = os.Getenv("ENV_FILE")
	}
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	return cfg, nil
}

// FromEnv собирает конфигурацию только из переменных окружения.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIHash:         os.Getenv("TG_API_HASH"),
		Phone:           os.Getenv("TG_PHONE"),
		Password:        os.Getenv("TG_PASSWORD"),
		Session:         os.Getenv("TG_SESSION"),
		Proxy:           os.Getenv("TG_PROXY"),
		BotToken:        os.Getenv("BOT_TOKEN"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		DBDriver:        getenv("DB_DRIVER", "postgres"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CredentialStore: getenv("CREDENTIAL_STORE", CredentialStoreEnv),
		EnvFile:         getenv("ENV_FILE", ".env"),
		Port:            getenv("PORT", "8080"),
		APIToken:        os.Getenv("API_TOKEN"),
		AuthPrompt:      getenv("AUTH_PROMPT", PromptConsole),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		SummaryInterval: time.Hour,
	}

	if v := os.Getenv("TG_API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("TG_API_ID: %w", err)
		}
		cfg.APIID = id
	}
	if v := os.Getenv("SUMMARY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SUMMARY_INTERVAL: %w", err)
		}
		cfg.SummaryInterval = d
	}
	if v := os.Getenv("SUMMARY_RESPECT_FREQUENCY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SUMMARY_RESPECT_FREQUENCY: %w", err)
		}
		cfg.RespectFrequency = b
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Validate проверяет настройки, без которых сервис не запустится.
func (c *Config) Validate() error {
	var missing []string
	if c.APIID == 0 {
		missing = append(missing, "TG_API_ID")
	}
	if c.APIHash == "" {
		missing = append(missing, "TG_API_HASH")
	}
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return c.validateChoices()
}

// ValidateLogin — проверка для команды входа: нужны только параметры Telegram.
func (c *Config) ValidateLogin() error {
	if c.APIID == 0 || c.APIHash == "" {
		return fmt.Errorf("missing required settings: TG_API_ID, TG_API_HASH")
	}
	if c.CredentialStore == CredentialStoreDB && c.DatabaseURL == "" {
		return fmt.Errorf("missing required settings: DATABASE_URL")
	}
	return c.validateChoices()
}

func (c *Config) validateChoices() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	switch c.CredentialStore {
	case CredentialStoreEnv, CredentialStoreDB:
	default:
		return fmt.Errorf("CREDENTIAL_STORE: unsupported store %q", c.CredentialStore)
	}
	switch c.AuthPrompt {
	case PromptConsole, PromptPreset, PromptHTTP:
	default:
		return fmt.Errorf("AUTH_PROMPT: unsupported prompt %q", c.AuthPrompt)
	}
	if c.SummaryInterval <= 0 {
		return fmt.Errorf("SUMMARY_INTERVAL must be positive")
	}
	return nil
}

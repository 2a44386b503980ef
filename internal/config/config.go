package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store Config
	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsPath   string        `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"5m"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Classifier Config
	SpamModelPath     string `env:"SPAM_MODEL_PATH" envDefault:"models/spam_model.json"`
	CategoryModelPath string `env:"CATEGORY_MODEL_PATH" envDefault:"models/category_model.json"`

	// Notification Config
	SubscribersFile      string        `env:"SUBSCRIBERS_FILE" envDefault:"subscribers.yaml"`
	AlertRadiusKM        float64       `env:"ALERT_RADIUS_KM" envDefault:"20"`
	NotifyWorkers        int           `env:"NOTIFY_WORKERS" envDefault:"2"`
	NotifyConcurrency    int           `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	NotifyChannelTimeout time.Duration `env:"NOTIFY_CHANNEL_TIMEOUT" envDefault:"10s"`
	NotifyQueueSize      int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`

	// Email (SMTP) Config
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	// SMS Config
	SMSAPIURL        string  `env:"SMS_API_URL"`
	SMSAccountSID    string  `env:"SMS_ACCOUNT_SID"`
	SMSAuthToken     string  `env:"SMS_AUTH_TOKEN"`
	SMSFrom          string  `env:"SMS_FROM"`
	SMSRatePerSecond float64 `env:"SMS_RATE_PER_SECOND" envDefault:"5"`

	// Realtime Config
	EventsChannel string `env:"EVENTS_CHANNEL" envDefault:"incident_events"`
	EventsBuffer  int    `env:"EVENTS_BUFFER" envDefault:"16"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "file://migrations"),
		IncidentCacheTTL:     getEnvAsDuration("INCIDENT_CACHE_TTL", 5*time.Minute),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		SpamModelPath:        getEnv("SPAM_MODEL_PATH", "models/spam_model.json"),
		CategoryModelPath:    getEnv("CATEGORY_MODEL_PATH", "models/category_model.json"),
		SubscribersFile:      getEnv("SUBSCRIBERS_FILE", "subscribers.yaml"),
		AlertRadiusKM:        getEnvAsFloat("ALERT_RADIUS_KM", 20),
		NotifyWorkers:        getEnvAsInt("NOTIFY_WORKERS", 2),
		NotifyConcurrency:    getEnvAsInt("NOTIFY_CONCURRENCY", 8),
		NotifyChannelTimeout: getEnvAsDuration("NOTIFY_CHANNEL_TIMEOUT", 10*time.Second),
		NotifyQueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:             os.Getenv("SMTP_FROM"),
		SMSAPIURL:            os.Getenv("SMS_API_URL"),
		SMSAccountSID:        os.Getenv("SMS_ACCOUNT_SID"),
		SMSAuthToken:         os.Getenv("SMS_AUTH_TOKEN"),
		SMSFrom:              os.Getenv("SMS_FROM"),
		SMSRatePerSecond:     getEnvAsFloat("SMS_RATE_PER_SECOND", 5),
		EventsChannel:        getEnv("EVENTS_CHANNEL", "incident_events"),
		EventsBuffer:         getEnvAsInt("EVENTS_BUFFER", 16),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AlertRadiusKM <= 0 {
		return fmt.Errorf("ALERT_RADIUS_KM must be positive")
	}
	if c.NotifyWorkers < 1 {
		c.NotifyWorkers = 1
	}
	if c.NotifyConcurrency < 1 {
		c.NotifyConcurrency = 1
	}
	return nil
}

// UsesRedis - нужен ли Redis для кеша, очереди оповещений и трансляции событий
func (c *Config) UsesRedis() bool {
	return c.StoreDriver == StoreDriverPostgres
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}

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

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	JWT        JWTConfig
	Log        LogConfig
	Events     EventsConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
	TimeZone string
}

type JWTConfig struct {
	Secret string
	// TTL of zero issues tokens without an expiry.
	TTL time.Duration
}

type LogConfig struct {
	Level string
}

// EventsConfig selects where application events are delivered.
type EventsConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

const (
	EventsBackendLog      = "log"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"
)

var requiredKeys = []string{"PORT", "DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "JWT_KEY"}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "postgres"),
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", ""),
		UseSSL:   getEnvBool("DB_SSL", false),
		TimeZone: getEnv("DB_TIME_ZONE", "Etc/GMT+8"),
	}

	eventsConfig := EventsConfig{
		Backend: strings.ToLower(getEnv("EVENTS_BACKEND", EventsBackendLog)),
		Channel: getEnv("EVENTS_CHANNEL", "petalmail.events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		ServerPort: getEnvInt("PORT", 0),
		Database:   dbConfig,
		JWT: JWTConfig{
			Secret: strings.TrimSpace(getEnv("JWT_KEY", "")),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Events: eventsConfig,
	}
}

// Validate reports every required setting that is missing or unusable.
func (c Config) Validate() error {
	var errs []error
	required := map[string]bool{
		"PORT":        c.ServerPort != 0,
		"DB_HOST":     c.Database.Host != "",
		"DB_USER":     c.Database.User != "",
		"DB_PASSWORD": c.Database.Password != "",
		"DB_NAME":     c.Database.DBName != "",
		"JWT_KEY":     c.JWT.Secret != "",
	}
	for _, key := range requiredKeys {
		if !required[key] {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.ServerPort))
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	switch c.Events.Backend {
	case EventsBackendLog:
	case EventsBackendRabbitMQ:
		if c.Events.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for the rabbitmq events backend"))
		}
	case EventsBackendPubSub:
		if c.Events.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("PUBSUB_PROJECT_ID is required for the pubsub events backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENTS_BACKEND %q", c.Events.Backend))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

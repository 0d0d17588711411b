package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config is the server configuration, read once at startup.
type Config struct {
	// Port is the HTTP listening port.
	Port string

	// GRPCPort serves the grpc health and reflection services.
	GRPCPort string

	// StoreDriver selects the user store: postgres, mongo or memory.
	StoreDriver string

	// DatabaseURL is the postgres or mongo connection string.
	DatabaseURL string

	// MongoDatabase is the database holding the users collection.
	MongoDatabase string

	// JWTSecret signs and verifies tokens.
	JWTSecret []byte

	// TokenTTL is the validity of every issued token.
	TokenTTL time.Duration

	// HealthInterval is the period of the store probes.
	HealthInterval time.Duration

	LogLevel log.Level
}

// WorkerConfig is the configuration of the user-event informer.
type WorkerConfig struct {
	ProjectID      string
	SubscriptionID string
	PublicTopicID  string
	GRPCPort       string
	HealthInterval time.Duration
	LogLevel       log.Level
}

// Load reads the server configuration from the environment, after loading an optional .env file.
// Every missing or malformed variable is reported in a single error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	r := &reader{}
	cfg := &Config{
		Port:           r.required("PORT"),
		GRPCPort:       r.optional("GRPC_PORT", "50051"),
		StoreDriver:    r.optional("STORE_DRIVER", DriverPostgres),
		MongoDatabase:  r.optional("MONGO_DATABASE", "accounts"),
		JWTSecret:      []byte(r.required("JWT_ENCODING_SECRET")),
		TokenTTL:       r.duration("TOKEN_TTL", 300*time.Second),
		HealthInterval: r.duration("HEALTH_INTERVAL", 10*time.Second),
		LogLevel:       r.logLevel("LOG_LEVEL", log.InfoLevel),
	}
	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo:
		cfg.DatabaseURL = r.required("DATABASE_URL")
	case DriverMemory:
		cfg.DatabaseURL = r.optional("DATABASE_URL", "")
	default:
		r.invalid = append(r.invalid, fmt.Sprintf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the informer configuration from the environment.
func LoadWorker() (*WorkerConfig, error) {
	_ = godotenv.Load()

	r := &reader{}
	cfg := &WorkerConfig{
		ProjectID:      r.optional("PUBSUB_PROJECT_ID", "accounts"),
		SubscriptionID: r.optional("PUBSUB_USER_EVENT_SUBSCRIPTION_ID", "worker.cdc.accounts.users.sub"),
		PublicTopicID:  r.optional("PUBSUB_PUBLIC_USER_EVENT_TOPIC", "shared.accounts.UserEvents"),
		GRPCPort:       r.optional("GRPC_PORT", "50052"),
		HealthInterval: r.duration("HEALTH_INTERVAL", 10*time.Second),
		LogLevel:       r.logLevel("LOG_LEVEL", log.InfoLevel),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader accumulates configuration problems instead of failing on the first one.
type reader struct {
	missing []string
	invalid []string
}

func (r *reader) required(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.missing = append(r.missing, key)
		return ""
	}
	return v
}

func (r *reader) optional(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.optional(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, fmt.Sprintf("%s: %q is not a positive duration", key, v))
		return def
	}
	return d
}

func (r *reader) logLevel(key string, def log.Level) log.Level {
	v := r.optional(key, "")
	if v == "" {
		return def
	}
	level, err := log.ParseLevel(v)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return level
}

func (r *reader) err() error {
	var problems []string
	if len(r.missing) > 0 {
		problems = append(problems, "missing required variables: "+strings.Join(r.missing, ", "))
	}
	problems = append(problems, r.invalid...)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Package config reads process configuration from P3_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/lionarc/dein-p3-markt/internal/catalog"
	"github.com/lionarc/dein-p3-markt/internal/storage"
	"github.com/lionarc/dein-p3-markt/pkg/circuitbreaker"
)

const Prefix = "P3"

type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"50051"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	HealthInterval  time.Duration `envconfig:"HEALTH_INTERVAL" default:"15s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	SessionID     string `envconfig:"SESSION_ID" default:"default"`
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"sqlite"`
	StorePath     string `envconfig:"STORE_PATH" default:"p3-markt.db"`
	KeyPrefix     string `envconfig:"KEY_PREFIX" default:"p3-markt-"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"p3markt"`

	CatalogDriver string `envconfig:"CATALOG_DRIVER" default:"sqlite"`
	CatalogDSN    string `envconfig:"CATALOG_DSN" default:"file:catalog.db"`
	// CatalogCacheAddr enables the Redis lookup cache when set
	CatalogCacheAddr string        `envconfig:"CATALOG_CACHE_ADDR"`
	CatalogCacheTTL  time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"15m"`

	BreakerMaxRequests uint32        `envconfig:"BREAKER_MAX_REQUESTS" default:"1"`
	BreakerInterval    time.Duration `envconfig:"BREAKER_INTERVAL" default:"1m"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"10s"`
	BreakerFailures    uint32        `envconfig:"BREAKER_FAILURES" default:"5"`

	// KafkaBrokers switches celebrations from the log to Kafka when set
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"coupons-earned"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"p3markt-celebrator"`

	CouponsPath   string        `envconfig:"COUPONS_PATH" default:"config/coupons.json"`
	AdminKey      string        `envconfig:"ADMIN_KEY" default:"admin123"`
	MessageTTL    time.Duration `envconfig:"SCAN_MESSAGE_TTL" default:"3s"`
	LookupTimeout time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"5s"`
}

// Load reads .env.local first when APP_ENV is "local"; real environment
// variables win over the file.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") == "local" {
		if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env.local: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case storage.DriverMemory, storage.DriverSQLite, storage.DriverRedis, storage.DriverMongo:
	default:
		return fmt.Errorf("invalid store driver %q", c.StoreDriver)
	}
	switch c.CatalogDriver {
	case catalog.DialectSQLite, catalog.DialectPostgres, catalog.DialectMySQL:
	default:
		return fmt.Errorf("invalid catalog driver %q", c.CatalogDriver)
	}
	if c.AdminKey == "" {
		return errors.New("admin key must not be empty")
	}
	return nil
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:        c.StoreDriver,
		SQLitePath:    c.StorePath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

func (c *Config) BreakerConfig(name string) circuitbreaker.Config {
	return circuitbreaker.Config{
		Name:                name,
		MaxRequests:         c.BreakerMaxRequests,
		Interval:            c.BreakerInterval,
		Timeout:             c.BreakerTimeout,
		ConsecutiveFailures: c.BreakerFailures,
	}
}

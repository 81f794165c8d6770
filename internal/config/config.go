package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTP
	Log      Log
	Storage  Storage
	Redis    Redis
	Mongo    Mongo
	Postgres Postgres
	Catalog  Catalog
	Kafka    Kafka
	Checkout Checkout
	Notify   Notify
}

type HTTP struct {
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Log struct {
	Level       string
	Development bool
}

type Storage struct {
	Driver        string
	KeyPrefix     string
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Mongo struct {
	URI      string
	Database string
}

type Postgres struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type Catalog struct {
	DBPath         string
	MigrationsPath string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Checkout struct {
	FlatFee       int64
	FreeThreshold int64
	SubmitTimeout time.Duration
	LookupTimeout time.Duration
}

type Notify struct {
	Timeout time.Duration
}

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.key_prefix", "artprint-cart")
	v.SetDefault("storage.write_timeout", time.Second)
	v.SetDefault("storage.idle_timeout", 30*time.Minute)
	v.SetDefault("storage.sweep_interval", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "storefront")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "storefront")
	v.SetDefault("postgres.password", "storefront")
	v.SetDefault("postgres.dbname", "storefront")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrations_path", "internal/orders/migrations")

	v.SetDefault("catalog.db_path", "catalog.db")
	v.SetDefault("catalog.migrations_path", "internal/catalog/migrations")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("checkout.shipping.flat_fee", 350)
	v.SetDefault("checkout.shipping.free_threshold", 5000)
	v.SetDefault("checkout.submit_timeout", 15*time.Second)
	v.SetDefault("checkout.lookup_timeout", 10*time.Second)

	v.SetDefault("notify.timeout", 10*time.Second)
}

// Load reads an optional .env file, then config.yaml from /etc/storefront or
// dir, then STOREFRONT_* environment variables. Missing files are not an
// error; every key has a default.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(dir + "/.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error while loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/storefront")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error while reading config file: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{
			Port:            v.GetInt("http.port"),
			RequestTimeout:  v.GetDuration("http.request_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			AllowedOrigins:  v.GetStringSlice("http.allowed_origins"),
		},
		Log: Log{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Storage: Storage{
			Driver:        strings.ToLower(v.GetString("storage.driver")),
			KeyPrefix:     v.GetString("storage.key_prefix"),
			WriteTimeout:  v.GetDuration("storage.write_timeout"),
			IdleTimeout:   v.GetDuration("storage.idle_timeout"),
			SweepInterval: v.GetDuration("storage.sweep_interval"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Mongo: Mongo{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Postgres: Postgres{
			Host:           v.GetString("postgres.host"),
			Port:           v.GetInt("postgres.port"),
			User:           v.GetString("postgres.user"),
			Password:       v.GetString("postgres.password"),
			DBName:         v.GetString("postgres.dbname"),
			SSLMode:        v.GetString("postgres.sslmode"),
			MigrationsPath: v.GetString("postgres.migrations_path"),
		},
		Catalog: Catalog{
			DBPath:         v.GetString("catalog.db_path"),
			MigrationsPath: v.GetString("catalog.migrations_path"),
		},
		Kafka: Kafka{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Checkout: Checkout{
			FlatFee:       v.GetInt64("checkout.shipping.flat_fee"),
			FreeThreshold: v.GetInt64("checkout.shipping.free_threshold"),
			SubmitTimeout: v.GetDuration("checkout.submit_timeout"),
			LookupTimeout: v.GetDuration("checkout.lookup_timeout"),
		},
		Notify: Notify{
			Timeout: v.GetDuration("notify.timeout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad(dir string) *Config {
	cfg, err := Load(dir)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageRedis, StorageMongo:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.IdleTimeout <= 0 || c.Storage.SweepInterval <= 0 {
		return errors.New("storage idle timeout and sweep interval must be positive")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.Checkout.FlatFee < 0 || c.Checkout.FreeThreshold < 0 {
		return errors.New("shipping fee and threshold must not be negative")
	}
	return nil
}

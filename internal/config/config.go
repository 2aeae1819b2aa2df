package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `validate:"required,oneof=development stage production"`
	Http Http

	Cors CORS `validate:"required"`

	Postgres Postgres `validate:"required"`

	Kafka Kafka `validate:"required"`

	Gateway Gateway `validate:"required"`
	Carrier Carrier `validate:"required"`

	Redis Redis

	Shipment Shipment
	Cache    Cache
}

type Http struct {
	Host string `validate:"required,hostname|ip"`
	Port string `validate:"required,gt=0,lte=65535"`
}

type CORS struct {
	AllowedOrigins []string `validate:"required,min=1,dive,url"`
}

type Postgres struct {
	Host     string `validate:"required,hostname|ip"`
	Port     int    `validate:"required,gt=0,lte=65535"`
	DBName   string `validate:"required"`
	User     string `validate:"required"`
	Password string `validate:"required"`

	SSLMode string `validate:"required,oneof=disable require verify-ca verify-full"`

	MaxOpenConns    int           `validate:"gte=1"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
}

type Kafka struct {
	Brokers      []string      `validate:"required,min=1,dive,hostname_port"`
	EventsTopic  string        `validate:"required"`
	BatchTimeout time.Duration `validate:"gte=0"`
}

// Gateway configures the payment gateway HTTP client.
type Gateway struct {
	BaseURL     string        `validate:"required,url"`
	AccessToken string        `validate:"required"`
	Timeout     time.Duration `validate:"gt=0"`
}

// Carrier configures the shipping carrier HTTP client and its OAuth flow.
type Carrier struct {
	BaseURL      string        `validate:"required,url"`
	ClientID     string        `validate:"required"`
	ClientSecret string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`

	SenderName  string `validate:"required"`
	SenderPhone string
	SenderZIP   string `validate:"required"`
}

type Redis struct {
	Addr string `validate:"omitempty,hostname_port"`
}

type Shipment struct {
	MaxAttempts  int           `validate:"gte=1"`
	InitialDelay time.Duration `validate:"gt=0"`
	Workers      int           `validate:"gte=1"`
	QueueSize    int           `validate:"gte=1"`
}

type Cache struct {
	Capacity int           `validate:"gte=1"`
	TTL      time.Duration `validate:"gt=0"`
}

func New() Config {
	return Config{
		Env: env("ENV", "development"),

		Http: Http{
			Host: env("HOST", "localhost"),
			Port: env("PORT", "8080"),
		},

		Cors: CORS{
			AllowedOrigins: strings.Split(env("ALLOWED_CORS_ORIGINS", "http://localhost:3000"), ","),
		},

		Postgres: Postgres{
			Port:     envInt("POSTGRES_PORT", 5432),
			Host:     env("POSTGRES_HOST", "localhost"),
			DBName:   env("POSTGRES_DB", "storefront"),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),

			SSLMode: env("POSTGRES_SSL_MODE", "disable"),

			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Kafka: Kafka{
			Brokers:      strings.Split(env("KAFKA_BROKERS", "localhost:9092"), ","),
			EventsTopic:  env("KAFKA_EVENTS_TOPIC", "order-events"),
			BatchTimeout: envDuration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),
		},

		Gateway: Gateway{
			BaseURL:     env("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
			AccessToken: env("GATEWAY_ACCESS_TOKEN", ""),
			Timeout:     envDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},

		Carrier: Carrier{
			BaseURL:      env("CARRIER_BASE_URL", "https://api.melhorenvio.com.br"),
			ClientID:     env("CARRIER_CLIENT_ID", ""),
			ClientSecret: env("CARRIER_CLIENT_SECRET", ""),
			Timeout:      envDuration("CARRIER_TIMEOUT", 15*time.Second),

			SenderName:  env("CARRIER_SENDER_NAME", ""),
			SenderPhone: env("CARRIER_SENDER_PHONE", ""),
			SenderZIP:   env("CARRIER_SENDER_ZIP", ""),
		},

		Redis: Redis{
			Addr: env("REDIS_ADDR", ""),
		},

		Shipment: Shipment{
			MaxAttempts:  envInt("SHIPMENT_MAX_ATTEMPTS", 3),
			InitialDelay: envDuration("SHIPMENT_INITIAL_DELAY", time.Second),
			Workers:      envInt("SHIPMENT_WORKERS", 4),
			QueueSize:    envInt("SHIPMENT_QUEUE_SIZE", 256),
		},

		Cache: Cache{
			Capacity: envInt("CACHE_CAPACITY", 1000),
			TTL:      envDuration("CACHE_TTL", 10*time.Minute),
		},
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if len(fallback) == 0 {
		return ""
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

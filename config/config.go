package config

import (
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Application struct {
	Name         string
	Environment  string
	Debug        bool
	Port         int
	Timeout      time.Duration
	BaseURL      string
}

type GCP struct {
	ProjectID      string
	ServiceAccount []byte
	TasksLocation  string
}

type JWT struct {
	PrivateKey []byte
	PublicKey  []byte
}

type PostgreSQL struct {
	ConnectionURI   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Redis struct {
	Address  string
	Password string
	DB       int
}

type Kafka struct {
	BootstrapServers string
	SASLUsername     string
	SASLPassword     string
}

type PaymentProvider struct {
	BaseURL      string
	BasicAuthKey string
}

type Allocation struct {
	// RegistrationDeadlineOffset is the fallback admission deadline before a
	// pool's start, used when the pool does not define its own.
	RegistrationDeadlineOffset time.Duration
	RefundRetryDelay           time.Duration
}

type CORS struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int
	AllowCredentials bool
}

type Config struct {
	Application     Application
	GCP             GCP
	JWT             JWT
	PostgreSQL      PostgreSQL
	Redis           Redis
	Kafka           Kafka
	PaymentProvider PaymentProvider
	Allocation      Allocation
	CORS            CORS
}

var (
	once sync.Once
	c    *Config
)

func Get() *Config {
	once.Do(func() {
		godotenv.Load()

		c = &Config{
			Application: Application{
				Name:        getString("APPLICATION_NAME", "mt-allocation"),
				Environment: getString("APPLICATION_ENVIRONMENT", "development"),
				Debug:       getBool("APPLICATION_DEBUG", false),
				Port:        getInt("APPLICATION_PORT", 8080),
				Timeout:     getDuration("APPLICATION_TIMEOUT", 30*time.Second),
				BaseURL:     getString("APPLICATION_BASE_URL", "http://localhost:8080"),
			},
			GCP: GCP{
				ProjectID:      getString("GCP_PROJECT_ID", ""),
				ServiceAccount: getBase64("GCP_SERVICE_ACCOUNT", nil),
				TasksLocation:  getString("GCP_TASKS_LOCATION", "asia-southeast2"),
			},
			JWT: JWT{
				PrivateKey: getBase64("JWT_PRIVATE_KEY", nil),
				PublicKey:  getBase64("JWT_PUBLIC_KEY", nil),
			},
			PostgreSQL: PostgreSQL{
				ConnectionURI:   getString("POSTGRESQL_CONNECTION_URI", "postgres://localhost:5432/mt_allocation?sslmode=disable"),
				MaxOpenConns:    getInt("POSTGRESQL_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("POSTGRESQL_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: getDuration("POSTGRESQL_CONN_MAX_LIFETIME", 30*time.Minute),
			},
			Redis: Redis{
				Address:  getString("REDIS_ADDRESS", "localhost:6379"),
				Password: getString("REDIS_PASSWORD", ""),
				DB:       getInt("REDIS_DB", 0),
			},
			Kafka: Kafka{
				BootstrapServers: getString("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
				SASLUsername:     getString("KAFKA_SASL_USERNAME", ""),
				SASLPassword:     getString("KAFKA_SASL_PASSWORD", ""),
			},
			PaymentProvider: PaymentProvider{
				BaseURL:      getString("PAYMENT_PROVIDER_BASE_URL", ""),
				BasicAuthKey: getString("PAYMENT_PROVIDER_BASIC_AUTH_KEY", ""),
			},
			Allocation: Allocation{
				RegistrationDeadlineOffset: getDuration("ALLOCATION_REGISTRATION_DEADLINE_OFFSET", 0),
				RefundRetryDelay:           getDuration("ALLOCATION_REFUND_RETRY_DELAY", 5*time.Minute),
			},
			CORS: CORS{
				AllowedOrigins:   getStrings("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   getStrings("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
				AllowedHeaders:   getStrings("CORS_ALLOWED_HEADERS", []string{"*"}),
				ExposedHeaders:   getStrings("CORS_EXPOSED_HEADERS", []string{"X-Trace-Id"}),
				MaxAge:           getInt("CORS_MAX_AGE", 3600),
				AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
			},
		}
	})

	return c
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getStrings(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.Split(v, ",")
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getBase64(key string, fallback []byte) []byte {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := base64.StdEncoding.DecodeString(v); err == nil {
			return b
		}
	}
	return fallback
}

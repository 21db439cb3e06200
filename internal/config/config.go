package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Ticket   TicketConfig
	Email    EmailConfig
	Event    EventConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
	MaxRetries   int
}

// RedisConfig is optional; an empty Addr disables creation idempotency.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig

	// PublishTimeout bounds one event write; order creation may block on it.
	PublishTimeout  time.Duration
	// FeedGroupPrefix names the per-instance consumer group of the admin feed.
	FeedGroupPrefix string
}

type TopicConfig struct {
	OrderCreated  string
	OrderPaid     string
	OrderFailed   string
	TicketScanned string
}

// All returns every configured topic name.
func (t TopicConfig) All() []string {
	return []string{t.OrderCreated, t.OrderPaid, t.OrderFailed, t.TicketScanned}
}

type PaymentConfig struct {
	BaseURL         string
	APIKey          string
	AccountID       string
	Timeout         time.Duration
	ReferencePrefix string
}

type TicketConfig struct {
	UnitPrice   int64
	Type        string
	MaxQuantity int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
}

// EventConfig holds the details printed on the confirmation email.
type EventConfig struct {
	Name     string
	DateLine string
	Venue    string
	MapURL   string
}

type AuthConfig struct {
	OIDCIssuer string
	JWTSecret  string
}

type LogConfig struct {
	Dir string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),
			MaxRetries:   getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderCreated:  getEnv("KAFKA_TOPIC_ORDER_CREATED", "ticketing.order.created"),
				OrderPaid:     getEnv("KAFKA_TOPIC_ORDER_PAID", "ticketing.order.paid"),
				OrderFailed:   getEnv("KAFKA_TOPIC_ORDER_FAILED", "ticketing.order.failed"),
				TicketScanned: getEnv("KAFKA_TOPIC_TICKET_SCANNED", "ticketing.ticket.scanned"),
			},
			PublishTimeout:  getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 3*time.Second),
			FeedGroupPrefix: getEnv("KAFKA_FEED_GROUP_PREFIX", "ticketing-admin-feed-"),
		},
		Payment: PaymentConfig{
			BaseURL:         getEnv("HASHPAY_BASE_URL", "https://api.hashback.co.ke"),
			APIKey:          getEnv("HASHPAY_API_KEY", ""),
			AccountID:       getEnv("HASHPAY_ACCOUNT_ID", ""),
			Timeout:         getEnvDuration("HASHPAY_TIMEOUT", 10*time.Second),
			ReferencePrefix: getEnv("PAYMENT_REFERENCE_PREFIX", "WDD"),
		},
		Ticket: TicketConfig{
			UnitPrice:   getEnvInt64("TICKET_PRICE", 6000),
			Type:        getEnv("TICKET_TYPE", "single"),
			MaxQuantity: getEnvInt("MAX_QUANTITY", 10),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", ""),
		},
		Event: EventConfig{
			Name:     getEnv("EVENT_NAME", "Womens Day Dinner"),
			DateLine: getEnv("EVENT_DATE", "March 7, 2026, 3:00 PM - 10:00 PM"),
			Venue:    getEnv("EVENT_VENUE", "Radisson Blu Upper Hill, Nairobi"),
			MapURL:   getEnv("EVENT_MAP_URL", ""),
		},
		Auth: AuthConfig{
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			JWTSecret:  getEnv("STAFF_JWT_SECRET", ""),
		},
		Log: LogConfig{
			Dir: getEnv("LOG_DIR", "logs"),
		},
	}
}

// CreateOrderBudget is the longest order creation can hold its request open:
// the STK push plus the order.created publish before it and the order.failed
// publish after a refused push.
func (c *Config) CreateOrderBudget() time.Duration {
	budget := c.Payment.Timeout
	if c.Kafka.Enabled {
		budget += 2 * c.Kafka.PublishTimeout
	}
	return budget
}

// Validate rejects settings under which the server would cut off an order
// creation response after the push was already sent.
func (c *Config) Validate() error {
	if c.Server.WriteTimeout > 0 && c.CreateOrderBudget() >= c.Server.WriteTimeout {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT (%s) must exceed HASHPAY_TIMEOUT plus two KAFKA_PUBLISH_TIMEOUT (%s)",
			c.Server.WriteTimeout, c.CreateOrderBudget())
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv     string
	ServerAddr string

	DBDriver   string // mysql, postgres or memory
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBMaxConns int

	JWTSecret  string
	AdminEmail string

	RabbitMQURL     string
	OrderExchange   string
	OrderQueue      string
	EmailQueue      string
	DeadLetterQueue string
	MaxPriority     int

	KafkaBrokers    []string
	KafkaOrderTopic string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	TelegramToken       string
	TelegramAdminChatID int64

	Shop    ShopConfig
	Pricing PricingConfig

	RateLimit       int
	RateLimitWindow time.Duration
}

type ShopConfig struct {
	Name    string
	Address string
	Phone   string
	Lat     float64
	Lng     float64
}

type PricingConfig struct {
	FreeDeliveryThreshold decimal.Decimal
	BaseDeliveryFee       decimal.Decimal
	PerKmFee              decimal.Decimal
	ExpressFee            decimal.Decimal
	MaxDeliveryRadiusKm   float64
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "grocery"),
		DBMaxConns: getEnvAsInt("DB_MAX_CONNS", 10),

		JWTSecret:  getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", ""),
		AdminEmail: getEnv("ADMIN_EMAIL", ""),

		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		OrderExchange:   getEnv("ORDER_EXCHANGE", "orders_exchange"),
		OrderQueue:      getEnv("ORDER_QUEUE", "orders_queue"),
		EmailQueue:      getEnv("EMAIL_QUEUE", "order_emails_queue"),
		DeadLetterQueue: getEnv("DEAD_LETTER_QUEUE", "dead_letter_queue"),
		MaxPriority:     10,

		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BOOTSTRAP_SERVERS", "")),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "grocery.orders"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnvFromFile("SMTP_PASSWORD_FILE", "SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		TelegramToken:       getEnvFromFile("TELEGRAM_TOKEN_FILE", "TELEGRAM_TOKEN", ""),
		TelegramAdminChatID: getEnvAsInt64("TELEGRAM_ADMIN_CHAT_ID", 0),

		Shop: ShopConfig{
			Name:    getEnv("SHOP_NAME", "Ambalangoda Grocery"),
			Address: getEnv("SHOP_ADDRESS", ""),
			Phone:   getEnv("SHOP_PHONE", ""),
			Lat:     getEnvAsFloat("SHOP_LAT", 6.2357),
			Lng:     getEnvAsFloat("SHOP_LNG", 80.0534),
		},
		Pricing: PricingConfig{
			FreeDeliveryThreshold: getEnvAsDecimal("FREE_DELIVERY_THRESHOLD", 5000),
			BaseDeliveryFee:       getEnvAsDecimal("BASE_DELIVERY_FEE", 100),
			PerKmFee:              getEnvAsDecimal("PER_KM_FEE", 40),
			ExpressFee:            getEnvAsDecimal("EXPRESS_FEE", 150),
			MaxDeliveryRadiusKm:   getEnvAsFloat("MAX_DELIVERY_RADIUS_KM", 5),
		},

		RateLimit:       getEnvAsInt("ORDER_RATE_LIMIT", 10),
		RateLimitWindow: time.Duration(getEnvAsInt("ORDER_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Pricing.MaxDeliveryRadiusKm <= 0 {
		return fmt.Errorf("MAX_DELIVERY_RADIUS_KM must be positive")
	}
	if c.Pricing.BaseDeliveryFee.IsNegative() || c.Pricing.PerKmFee.IsNegative() ||
		c.Pricing.ExpressFee.IsNegative() || c.Pricing.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("delivery pricing values must not be negative")
	}
	if c.RateLimit <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("order rate limit is invalid")
	}
	return nil
}

// MySQLDSN builds a go-sql-driver DSN. clientFoundRows makes UPDATE report
// matched rows, so re-setting an unchanged value is not taken as a miss.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&clientFoundRows=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue int64) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	return decimal.NewFromInt(defaultValue)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if val := strings.TrimSpace(p); val != "" {
			out = append(out, val)
		}
	}
	return out
}

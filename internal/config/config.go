// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config итоговая конфигурация процесса
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogPretty bool

	Storage       string // memory | mongo
	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	StripeSecretKey   string
	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string
	DeliveryCharge    float64
	IdempotencyTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

type configFile struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`
	Storage struct {
		Driver        string `yaml:"driver"`
		MongoURI      string `yaml:"mongo_uri"`
		MongoDatabase string `yaml:"mongo_database"`
		RedisAddr     string `yaml:"redis_addr"`
	} `yaml:"storage"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		Group   string   `yaml:"group"`
	} `yaml:"kafka"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
		BcryptCost    int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Payments struct {
		StripeSecretKey   string   `yaml:"stripe_secret_key"`
		RazorpayKeyID     string   `yaml:"razorpay_key_id"`
		RazorpayKeySecret string   `yaml:"razorpay_key_secret"`
		Currency          string   `yaml:"currency"`
		DeliveryCharge    *float64 `yaml:"delivery_charge"`
	} `yaml:"payments"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Admin struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`
}

func defaults() Config {
	return Config{
		HTTPAddr:       ":4000",
		LogLevel:       "info",
		Storage:        "memory",
		MongoDatabase:  "e-commerce",
		KafkaTopic:     "storefront.orders",
		KafkaGroup:     "storefront-notifier",
		TokenTTL:       24 * time.Hour,
		BcryptCost:     10,
		Currency:       "inr",
		DeliveryCharge: 10,
		IdempotencyTTL: 24 * time.Hour,
		SMTPPort:       587,
		AdminName:      "Admin",
	}
}

// Load порядок приоритета: значения по умолчанию -> файл -> переменные окружения.
// Пустой path или отсутствующий файл не считается ошибкой.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			var f configFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
			f.apply(&cfg)
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (f configFile) apply(cfg *Config) {
	setString(&cfg.HTTPAddr, f.HTTP.Addr)
	setString(&cfg.LogLevel, f.Log.Level)
	if f.Log.Pretty != nil {
		cfg.LogPretty = *f.Log.Pretty
	}
	setString(&cfg.Storage, f.Storage.Driver)
	setString(&cfg.MongoURI, f.Storage.MongoURI)
	setString(&cfg.MongoDatabase, f.Storage.MongoDatabase)
	setString(&cfg.RedisAddr, f.Storage.RedisAddr)
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	setString(&cfg.KafkaTopic, f.Kafka.Topic)
	setString(&cfg.KafkaGroup, f.Kafka.Group)
	setString(&cfg.JWTSecret, f.Auth.JWTSecret)
	if f.Auth.TokenTTLHours > 0 {
		cfg.TokenTTL = time.Duration(f.Auth.TokenTTLHours) * time.Hour
	}
	if f.Auth.BcryptCost > 0 {
		cfg.BcryptCost = f.Auth.BcryptCost
	}
	setString(&cfg.StripeSecretKey, f.Payments.StripeSecretKey)
	setString(&cfg.RazorpayKeyID, f.Payments.RazorpayKeyID)
	setString(&cfg.RazorpayKeySecret, f.Payments.RazorpayKeySecret)
	setString(&cfg.Currency, f.Payments.Currency)
	if f.Payments.DeliveryCharge != nil {
		cfg.DeliveryCharge = *f.Payments.DeliveryCharge
	}
	setString(&cfg.SMTPHost, f.SMTP.Host)
	if f.SMTP.Port > 0 {
		cfg.SMTPPort = f.SMTP.Port
	}
	setString(&cfg.SMTPUsername, f.SMTP.Username)
	setString(&cfg.SMTPPassword, f.SMTP.Password)
	setString(&cfg.SMTPFrom, f.SMTP.From)
	setString(&cfg.AdminName, f.Admin.Name)
	setString(&cfg.AdminEmail, f.Admin.Email)
	setString(&cfg.AdminPassword, f.Admin.Password)
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = envBool("LOG_PRETTY", cfg.LogPretty)

	cfg.Storage = envOrDefault("STORAGE_DRIVER", cfg.Storage)
	cfg.MongoURI = envOrDefault("MONGODB_URI", cfg.MongoURI)
	cfg.MongoDatabase = envOrDefault("MONGODB_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = envOrDefault("REDIS_ADDR", cfg.RedisAddr)

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaGroup = envOrDefault("KAFKA_GROUP", cfg.KafkaGroup)

	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = time.Duration(envInt("TOKEN_TTL_HOURS", int(cfg.TokenTTL.Hours()))) * time.Hour
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)

	cfg.StripeSecretKey = envOrDefault("STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.RazorpayKeyID = envOrDefault("RAZORPAY_KEY_ID", cfg.RazorpayKeyID)
	cfg.RazorpayKeySecret = envOrDefault("RAZORPAY_KEY_SECRET", cfg.RazorpayKeySecret)
	cfg.Currency = envOrDefault("CURRENCY", cfg.Currency)
	cfg.DeliveryCharge = envFloat("DELIVERY_CHARGE", cfg.DeliveryCharge)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_MINUTES", int(cfg.IdempotencyTTL.Minutes()))) * time.Minute

	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)

	cfg.AdminName = envOrDefault("ADMIN_NAME", cfg.AdminName)
	cfg.AdminEmail = envOrDefault("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = envOrDefault("ADMIN_PASSWORD", cfg.AdminPassword)
}

func (c Config) validate() error {
	switch c.Storage {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("storage driver mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}
	if c.DeliveryCharge < 0 {
		return fmt.Errorf("delivery charge must not be negative")
	}
	if (c.RazorpayKeyID == "") != (c.RazorpayKeySecret == "") {
		return fmt.Errorf("razorpay needs both RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
	}
	return nil
}

// SMTPEnabled reports whether outgoing mail is configured.
func (c Config) SMTPEnabled() bool { return c.SMTPHost != "" && c.SMTPFrom != "" }

// BootstrapAdmin reports whether an admin account should be seeded at startup.
func (c Config) BootstrapAdmin() bool { return c.AdminEmail != "" && c.AdminPassword != "" }

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated values and drops empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}

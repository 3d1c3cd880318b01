package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr     string
	PostgresDSN    string
	RedisAddr      string
	KafkaBrokers   []string
	PurchasesTopic string
	TopupsTopic    string
	TopupsGroupID  string
	JWTSecret      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   []string{os.Getenv("KAFKA_BROKER")},
		PurchasesTopic: os.Getenv("KAFKA_PURCHASES_TOPIC"),
		TopupsTopic:    os.Getenv("KAFKA_TOPUPS_TOPIC"),
		TopupsGroupID:  os.Getenv("KAFKA_TOPUPS_GROUP"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=learnhub sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.PurchasesTopic == "" {
		cfg.PurchasesTopic = "purchases"
	}
	if cfg.TopupsTopic == "" {
		cfg.TopupsTopic = "wallet-topups"
	}
	if cfg.TopupsGroupID == "" {
		cfg.TopupsGroupID = "purchase-service-topups"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"purchases_topic", cfg.PurchasesTopic,
		"topups_topic", cfg.TopupsTopic)
	return cfg
}

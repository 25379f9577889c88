package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	// Tokens and their server-side sessions expire after SessionTTL.
	SessionTTL        time.Duration
	InternalSecretKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Postgres NOTIFY channel fed by the cart_items trigger.
	CartNotifyChannel string
	RequestTimeout    time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:            os.Getenv("DB_HOST"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBPort:            os.Getenv("DB_PORT"),
		AppPort:           getEnv("APP_PORT", "8080"),
		AppEnv:            os.Getenv("APP_ENV"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CartNotifyChannel: getEnv("CART_NOTIFY_CHANNEL", "cart_items_changes"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	}

	// "off" runs without the live cart feed
	if cfg.CartNotifyChannel == "off" {
		cfg.CartNotifyChannel = ""
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// Package config centralizes environment configuration. A .env file is
// loaded when present so local development does not need exported shell
// variables; real deployments set the environment directly.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppName doubles as the Postgres schema name the migrations live in.
const AppName = "tripledger"

// Config is the resolved process configuration.
type Config struct {
	Port         string
	DatabaseURL  string
	RabbitURL    string
	GCPProjectID string
	JWTSecret    string
	Dev          bool
}

// Load reads .env when present and resolves the configuration from the
// environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded configuration from .env")
	}
	return Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		GCPProjectID: os.Getenv("GCP_PROJECT_ID"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		Dev:          getEnvBool("DEV", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

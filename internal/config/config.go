/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// InventoryPath points at the YAML file listing nodes and their
	// executor counts.
	InventoryPath string

	// SchedulerInterval is how often the evaluation loop wakes up between
	// next-change instants.
	SchedulerInterval time.Duration

	JWTSigningKey string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:       getEnv("SLOTSQUATTER_ENV", "development"),
		HTTPBind:          getEnv("SLOTSQUATTER_HTTP_BIND", "0.0.0.0"),
		HTTPPort:          getEnvInt("SLOTSQUATTER_HTTP_PORT", 8080),
		DBBackend:         DatabaseBackend(getEnv("SLOTSQUATTER_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:             getEnv("SLOTSQUATTER_DB_DSN", "slotsquatter.db"),
		InventoryPath:     getEnv("SLOTSQUATTER_INVENTORY", "./nodes.yaml"),
		SchedulerInterval: time.Duration(getEnvInt("SLOTSQUATTER_SCHEDULER_INTERVAL_SECONDS", 30)) * time.Second,
		JWTSigningKey:     getEnv("SLOTSQUATTER_JWT_SIGNING_KEY", ""),
		TracingEnabled:    getEnvBool("SLOTSQUATTER_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SLOTSQUATTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SLOTSQUATTER_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port %d", cfg.HTTPPort)
	}
	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}
	if cfg.SchedulerInterval < time.Second {
		return nil, fmt.Errorf("scheduler interval %s is below one second", cfg.SchedulerInterval)
	}
	if cfg.JWTSigningKey == "" {
		if cfg.Environment != "development" {
			return nil, fmt.Errorf("SLOTSQUATTER_JWT_SIGNING_KEY is required outside development")
		}
		cfg.JWTSigningKey = "insecure-dev-signing-key"
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

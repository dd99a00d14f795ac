/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.DBBackend)
	}
	if cfg.SchedulerInterval != 30*time.Second {
		t.Errorf("expected 30s interval, got %s", cfg.SchedulerInterval)
	}
	if cfg.JWTSigningKey == "" {
		t.Error("expected a development fallback signing key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLOTSQUATTER_HTTP_PORT", "9090")
	t.Setenv("SLOTSQUATTER_DB_BACKEND", "postgres")
	t.Setenv("SLOTSQUATTER_SCHEDULER_INTERVAL_SECONDS", "5")
	t.Setenv("SLOTSQUATTER_TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.DBBackend != DatabasePostgres {
		t.Errorf("expected postgres backend, got %q", cfg.DBBackend)
	}
	if cfg.SchedulerInterval != 5*time.Second {
		t.Errorf("expected 5s interval, got %s", cfg.SchedulerInterval)
	}
	if !cfg.TracingEnabled {
		t.Error("expected tracing enabled")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SLOTSQUATTER_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestSigningKeyRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("SLOTSQUATTER_ENV", "production")
	if _, err := Load(); err == nil {
		t.Error("expected an error for a missing signing key in production")
	}
}

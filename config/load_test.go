package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
env: dev
strategy:
  underlying: ETH
  expiry: 2026-09-25T08:00:00Z
  riskFreeRate: 0.01
  orderSize: 1
limits:
  delta: 100000
  gamma: 1000
  vega: 1000
  openPosition: 4
gateway:
  apiKey: foo
  apiSecret: bar
  baseURL: https://test.deribit.com
loops:
  marketDataMs: 500
  fillsMs: 500
  quotingMs: 1000
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Strategy.Underlying != "ETH" || cfg.Limits.Delta != 100000 {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	want := time.Date(2026, 9, 25, 8, 0, 0, 0, time.UTC)
	if !cfg.Strategy.Expiry.Equal(want) {
		t.Fatalf("expiry %v want %v", cfg.Strategy.Expiry, want)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing underlying", func(c *AppConfig) { c.Strategy.Underlying = "" }},
		{"zero expiry", func(c *AppConfig) { c.Strategy.Expiry = time.Time{} }},
		{"zero order size", func(c *AppConfig) { c.Strategy.OrderSize = 0 }},
		{"missing credentials", func(c *AppConfig) { c.Gateway.APIKey = "" }},
		{"negative limit", func(c *AppConfig) { c.Limits.Vega = -1 }},
		{"negative interval", func(c *AppConfig) { c.Loops.QuotingMs = -1 }},
	}
	base, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("base config: %v", err)
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OMM_GATEWAY_API_KEY", "env-key")
	t.Setenv("OMM_GATEWAY_API_SECRET", "env-secret")
	cfg, err := LoadWithEnvOverrides(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.APIKey != "env-key" || cfg.Gateway.APISecret != "env-secret" {
		t.Fatalf("env overrides not applied: %+v", cfg.Gateway)
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "release" || cfg.Port != 8080 {
		t.Errorf("mode=%q port=%d", cfg.Mode, cfg.Port)
	}
	if cfg.SnapshotTTL != 168*time.Hour {
		t.Errorf("snapshot_ttl = %v", cfg.SnapshotTTL)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("store_timeout = %v", cfg.StoreTimeout)
	}
}

func TestLoadReadsEnvironmentFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	writeConfig(t, "config/config.test.yaml", "mode: debug\nport: 9090\nredis_url: redis://localhost:6379/0\n")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "debug" || cfg.Port != 9090 {
		t.Errorf("mode=%q port=%d", cfg.Mode, cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis_url = %q", cfg.RedisURL)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	writeConfig(t, "config/config.test.yaml", "port: [8080, 8081]\n")

	if _, err := Load(); err == nil {
		t.Fatal("malformed port accepted")
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll("config", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Interval != time.Second {
		t.Errorf("Expected 1s interval, got %v", cfg.Interval)
	}
	if cfg.HistoryLength != 100 {
		t.Errorf("Expected history length 100, got %d", cfg.HistoryLength)
	}
	if cfg.TopProcesses != 15 {
		t.Errorf("Expected 15 top processes, got %d", cfg.TopProcesses)
	}
	if cfg.ProbeTimeout != 2*time.Second {
		t.Errorf("Expected 2s probe timeout, got %v", cfg.ProbeTimeout)
	}
	if !cfg.GPU.Synthetic {
		t.Errorf("Expected synthetic GPU enabled by default")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, `
interval: 500ms
history_length: 60
gpu:
  strategies: [nvidia-smi, drm]
  synthetic: false
otel:
  endpoint: localhost:4318
  interval: 10s
  headers:
    x-team: infra
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Interval != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.Interval)
	}
	if cfg.HistoryLength != 60 {
		t.Errorf("Expected 60, got %d", cfg.HistoryLength)
	}
	if len(cfg.GPU.Strategies) != 2 || cfg.GPU.Strategies[1] != "drm" {
		t.Errorf("Expected [nvidia-smi drm], got %v", cfg.GPU.Strategies)
	}
	if cfg.GPU.Synthetic {
		t.Errorf("Expected synthetic disabled")
	}
	if cfg.OTel.Endpoint != "localhost:4318" || cfg.OTel.Interval != 10*time.Second {
		t.Errorf("Expected otel settings, got %+v", cfg.OTel)
	}
	if cfg.OTel.Headers["x-team"] != "infra" {
		t.Errorf("Expected header x-team, got %v", cfg.OTel.Headers)
	}
	if cfg.File() != path {
		t.Errorf("Expected file %s, got %s", path, cfg.File())
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeFile(t, "history_length: 60\n")
	t.Setenv("SYSMON_HISTORY_LENGTH", "30")
	t.Setenv("SYSMON_OTEL_ENDPOINT", "collector:4318")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.HistoryLength != 30 {
		t.Errorf("Expected env to win with 30, got %d", cfg.HistoryLength)
	}
	if cfg.OTel.Endpoint != "collector:4318" {
		t.Errorf("Expected endpoint from env, got %q", cfg.OTel.Endpoint)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := writeFile(t, "interval: 0s\nhistory_length: -1\n")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatalf("Expected validation error")
	}
	if !strings.Contains(err.Error(), "interval") || !strings.Contains(err.Error(), "history_length") {
		t.Errorf("Expected both fields reported, got %v", err)
	}
}

func TestSetValue_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysmon", "config.yaml")

	if _, err := SetValue(path, "interval", "2s"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := SetValue(path, "gpu.strategies", "drm, lspci"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Expected 2s, got %v", cfg.Interval)
	}
	if len(cfg.GPU.Strategies) != 2 || cfg.GPU.Strategies[0] != "drm" {
		t.Errorf("Expected [drm lspci], got %v", cfg.GPU.Strategies)
	}
}

func TestSetValue_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := SetValue(path, "telegram_token", "x"); err == nil {
		t.Errorf("Expected unknown key to be rejected")
	}
	if _, err := SetValue(path, "history_length", "0"); err == nil {
		t.Errorf("Expected invalid value to be rejected")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no file written on rejection")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if keys[0] != "cache_file" {
		t.Errorf("Expected sorted keys starting with cache_file, got %v", keys)
	}
}

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"sysmon/internal/config"
	"sysmon/internal/metrics"
)

func TestParseAssignments(t *testing.T) {
	pairs, err := parseAssignments([]string{"interval", "2s"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(pairs) != 1 || pairs[0] != [2]string{"interval", "2s"} {
		t.Errorf("Expected [interval 2s], got %v", pairs)
	}

	pairs, err = parseAssignments([]string{"history_length=300", "gpu.strategies=nvidia,drm"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(pairs) != 2 || pairs[1][1] != "nvidia,drm" {
		t.Errorf("Expected two pairs with nvidia,drm, got %v", pairs)
	}

	if _, err := parseAssignments([]string{"interval"}); err == nil {
		t.Error("Expected error for a bare key")
	}
	if _, err := parseAssignments([]string{"=5"}); err == nil {
		t.Error("Expected error for an empty key")
	}
}

func TestSortProcesses(t *testing.T) {
	procs := []metrics.ProcessInfo{
		{PID: 1, Name: "a", CPUPercent: 5, MemoryMB: 300},
		{PID: 2, Name: "b", CPUPercent: 50, MemoryMB: 10},
		{PID: 3, Name: "c", CPUPercent: 20, MemoryMB: 900},
	}

	byCPU := sortProcesses(procs, "cpu", 2)
	if len(byCPU) != 2 || byCPU[0].PID != 2 || byCPU[1].PID != 3 {
		t.Errorf("Expected pids [2 3] by cpu, got %v", byCPU)
	}

	byMem := sortProcesses(procs, "memory", 0)
	if len(byMem) != 3 || byMem[0].PID != 3 || byMem[2].PID != 2 {
		t.Errorf("Expected pids [3 1 2] by memory, got %v", byMem)
	}

	if procs[0].PID != 1 {
		t.Error("Expected input slice to be left untouched")
	}
}

func TestConfigValues_CoverEveryKey(t *testing.T) {
	cfg := &config.Config{
		Interval:     time.Second,
		ProbeTimeout: 2 * time.Second,
		OTel:         config.OTelConfig{Headers: map[string]string{"authorization": "secret"}},
	}
	values := configValues(cfg)
	for _, key := range config.Keys() {
		if _, ok := values[key]; !ok {
			t.Errorf("Expected a display value for %s", key)
		}
	}
	if strings.Contains(values["otel.headers"], "secret") {
		t.Errorf("Expected header values to be masked, got %s", values["otel.headers"])
	}
	if values["otel.endpoint"] != "-" {
		t.Errorf("Expected - for empty endpoint, got %s", values["otel.endpoint"])
	}
}

func TestRootCmd_Version(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := out.String(); got != "v1.2.3\n" {
		t.Errorf("Expected v1.2.3, got %q", got)
	}
}

func TestServiceArgs(t *testing.T) {
	configPath = ""
	if got := serviceArgs(); len(got) != 1 || got[0] != "run" {
		t.Errorf("Expected [run], got %v", got)
	}

	configPath = "sysmon.yaml"
	defer func() { configPath = "" }()
	got := serviceArgs()
	if len(got) != 3 || got[1] != "--config" || !strings.HasSuffix(got[2], "sysmon.yaml") {
		t.Errorf("Expected run --config <abs>, got %v", got)
	}
}

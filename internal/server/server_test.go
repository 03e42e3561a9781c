package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	constants "sysmon/config"
	"sysmon/internal/encoding"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
	"sysmon/internal/publisher"
	"sysmon/internal/sources"
)

type stubCollector struct {
	snap     *metrics.Snapshot
	err      error
	poisoned bool
}

func (s *stubCollector) Collect(context.Context) (*metrics.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubCollector) Poisoned() bool { return s.poisoned }

func testSnapshot() *metrics.Snapshot {
	snap := metrics.NewSnapshot(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "Linux")
	snap.CPUUsage = []float64{12.5}
	snap.TopProcesses = []metrics.ProcessInfo{{PID: 1, Name: "init", CPUPercent: 0.5, MemoryMB: 4}}
	return snap
}

func newTestServer(c Collector, hub *Hub, g prometheus.Gatherer) *httptest.Server {
	s := New(c, hub, Options{
		Gatherer: g,
		Platform: func(context.Context) sources.Platform { return sources.Platform{Name: "Linux", OS: "linux"} },
		Log:      logger.Discard(),
	})
	return httptest.NewServer(s.Handler())
}

func TestSnapshot_JSON(t *testing.T) {
	ts := newTestServer(&stubCollector{snap: testSnapshot()}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != constants.CONTENT_TYPE_JSON {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if string(body["top_processes"]) != `[[1,"init",0.5,4]]` {
		t.Errorf("Expected tuple processes, got %s", body["top_processes"])
	}
	if string(body["platform_name"]) != `"Linux"` {
		t.Errorf("Expected platform Linux, got %s", body["platform_name"])
	}
}

func TestSnapshot_CBOR(t *testing.T) {
	ts := newTestServer(&stubCollector{snap: testSnapshot()}, nil, nil)
	defer ts.Close()

	var snap metrics.Snapshot
	if err := encoding.FetchCBOR(context.Background(), ts.Client(), ts.URL+"/api/snapshot", &snap); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(snap.CPUUsage) != 1 || snap.CPUUsage[0] != 12.5 {
		t.Errorf("Expected cpu [12.5], got %v", snap.CPUUsage)
	}
	if len(snap.TopProcesses) != 1 || snap.TopProcesses[0].Name != "init" {
		t.Errorf("Expected init process, got %+v", snap.TopProcesses)
	}
}

func TestSnapshot_ErrorIs500(t *testing.T) {
	ts := newTestServer(&stubCollector{err: errors.New("collection cycle failed: boom")}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "collection cycle failed: boom" {
		t.Errorf("Expected error message, got %v", body)
	}
}

func TestPlatform(t *testing.T) {
	ts := newTestServer(&stubCollector{}, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/platform")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	var p sources.Platform
	json.NewDecoder(resp.Body).Decode(&p)
	if p.Name != "Linux" {
		t.Errorf("Expected Linux, got %q", p.Name)
	}
}

func TestHealth(t *testing.T) {
	c := &stubCollector{}
	ts := newTestServer(c, nil, nil)
	defer ts.Close()

	resp, _ := http.Get(ts.URL + "/healthz")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	c.poisoned = true
	resp, _ = http.Get(ts.URL + "/healthz")
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while recovering, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	latest := metrics.NewLatest()
	latest.Store(testSnapshot())
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPrometheusCollector(latest))

	ts := newTestServer(&stubCollector{}, nil, reg)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	found := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), `sysmon_cpu_usage_percent{core="0"} 12.5`) {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected cpu usage series in /metrics output")
	}
}

func TestEvents_StreamsPublishedSnapshots(t *testing.T) {
	hub := NewHub(logger.Discard())
	ts := newTestServer(&stubCollector{}, hub, nil)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event stream, got %s", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected client to register")
		}
		time.Sleep(5 * time.Millisecond)
	}

	pub := publisher.New(logger.Discard())
	pub.Subscribe("sse", hub)
	pub.PublishError(ctx, errors.New("boom"))
	pub.Publish(ctx, testSnapshot())

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 4 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Expected stream data, got %v", err)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if lines[0] != "event: "+constants.EVENT_BACKEND_ERROR || lines[1] != `data: {"error":"boom"}` {
		t.Errorf("Expected backend-error event, got %v", lines[:2])
	}
	if lines[2] != "event: "+constants.EVENT_SYSTEM_UPDATE || !strings.Contains(lines[3], `"platform_name":"Linux"`) {
		t.Errorf("Expected system-update event, got %v", lines[2:])
	}
}

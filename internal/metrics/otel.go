package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	constants "sysmon/config"
)

// OTelConfig configures OTLP/HTTP metric export.
type OTelConfig struct {
	Endpoint string // host:port
	Insecure bool
	Headers  map[string]string
	Interval time.Duration
	Hostname string
}

// OTelExporter publishes the latest snapshot as observable gauges.
type OTelExporter struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
	latest   *Latest
}

// NewOTelExporter starts a periodic OTLP/HTTP exporter over latest.
func NewOTelExporter(ctx context.Context, cfg OTelConfig, latest *Latest) (*OTelExporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is required")
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath(constants.OTLP_PATH),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
		}),
		otlpmetrichttp.WithTimeout(30 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = constants.DEFAULT_OTEL_INTERVAL_SECONDS * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	return NewOTelExporterWithReader(reader, cfg.Hostname, latest)
}

// NewOTelExporterWithReader registers the gauges on a provider backed by
// reader. Tests pass a manual reader.
func NewOTelExporterWithReader(reader sdkmetric.Reader, hostname string, latest *Latest) (*OTelExporter, error) {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	// Not merged with resource.Default(): its schema URL differs from semconv v1.24.0
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(constants.SERVICE_NAME),
		semconv.ServiceVersion(constants.SERVICE_VERSION),
		semconv.HostName(hostname),
		attribute.String("os.type", runtime.GOOS),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	e := &OTelExporter{
		provider: provider,
		meter:    provider.Meter("sysmon", metric.WithInstrumentationVersion(constants.SERVICE_VERSION)),
		latest:   latest,
	}
	if err := e.register(); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return e, nil
}

// ForceFlush exports pending data now.
func (e *OTelExporter) ForceFlush(ctx context.Context) error {
	return e.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter.
func (e *OTelExporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

type gaugeSpec struct {
	name, description, unit string
	observe                 func(s *Snapshot, o metric.Float64Observer)
}

func (e *OTelExporter) register() error {
	for _, g := range snapshotGauges() {
		observe := g.observe
		_, err := e.meter.Float64ObservableGauge(
			g.name,
			metric.WithDescription(g.description),
			metric.WithUnit(g.unit),
			metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
				s := e.latest.Load()
				if s == nil {
					return nil
				}
				observe(s, o)
				return nil
			}),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func snapshotGauges() []gaugeSpec {
	return []gaugeSpec{
		{"sysmon.cpu.usage", "Per-core CPU busy percentage", "%", func(s *Snapshot, o metric.Float64Observer) {
			for i, v := range s.CPUUsage {
				o.Observe(v, metric.WithAttributes(attribute.String("core", strconv.Itoa(i))))
			}
		}},
		{"sysmon.memory", "Physical memory", "GBy", func(s *Snapshot, o metric.Float64Observer) {
			o.Observe(s.MemoryUsed, metric.WithAttributes(attribute.String("type", "used")))
			o.Observe(s.MemoryTotal, metric.WithAttributes(attribute.String("type", "total")))
		}},
		{"sysmon.memory.usage", "Physical memory usage percentage", "%", func(s *Snapshot, o metric.Float64Observer) {
			o.Observe(s.MemoryPercent())
		}},
		{"sysmon.network.speed", "Interface throughput", "KBy/s", func(s *Snapshot, o metric.Float64Observer) {
			for name, n := range s.NetworkData {
				o.Observe(n.CurrentRxSpeed, metric.WithAttributes(attribute.String("interface", name), attribute.String("direction", "rx")))
				o.Observe(n.CurrentTxSpeed, metric.WithAttributes(attribute.String("interface", name), attribute.String("direction", "tx")))
			}
		}},
		{"sysmon.disk.usage", "Partition usage percentage", "%", func(s *Snapshot, o metric.Float64Observer) {
			for name, d := range s.DiskData {
				o.Observe(d.UsedPercentage, metric.WithAttributes(
					attribute.String("device", name),
					attribute.String("mountpoint", d.MountPoint),
					attribute.String("kind", d.DiskType),
				))
			}
		}},
		{"sysmon.disk.io", "Partition I/O rate", "KBy/s", func(s *Snapshot, o metric.Float64Observer) {
			for name, d := range s.DiskData {
				est := attribute.Bool("estimated", d.IOEstimated)
				o.Observe(d.ReadBytesPerSec, metric.WithAttributes(attribute.String("device", name), attribute.String("direction", "read"), est))
				o.Observe(d.WriteBytesPerSec, metric.WithAttributes(attribute.String("device", name), attribute.String("direction", "write"), est))
			}
		}},
		{"sysmon.system.disk.io", "System-wide process disk I/O rate", "KBy/s", func(s *Snapshot, o metric.Float64Observer) {
			o.Observe(s.SystemDiskReadPerSec, metric.WithAttributes(attribute.String("direction", "read")))
			o.Observe(s.SystemDiskWritePerSec, metric.WithAttributes(attribute.String("direction", "write")))
		}},
		{"sysmon.gpu.utilization", "GPU utilization percentage", "%", gpuObserver(func(g GPUData) float64 { return g.Utilization })},
		{"sysmon.gpu.temperature", "GPU temperature", "Cel", gpuObserver(func(g GPUData) float64 { return g.Temperature })},
		{"sysmon.gpu.memory.used", "GPU memory in use", "GBy", gpuObserver(func(g GPUData) float64 { return g.MemoryUsed })},
		{"sysmon.gpu.power", "GPU power draw", "W", gpuObserver(func(g GPUData) float64 { return g.PowerUsage })},
		{"sysmon.process.cpu", "Top process CPU percentage", "%", func(s *Snapshot, o metric.Float64Observer) {
			for _, p := range s.TopProcesses {
				o.Observe(float64(p.CPUPercent), metric.WithAttributes(
					attribute.Int64("pid", int64(p.PID)),
					attribute.String("name", p.Name),
				))
			}
		}},
	}
}

func gpuObserver(value func(GPUData) float64) func(*Snapshot, metric.Float64Observer) {
	return func(s *Snapshot, o metric.Float64Observer) {
		for _, g := range s.GPUData {
			o.Observe(value(g), metric.WithAttributes(
				attribute.String("gpu", g.Name),
				attribute.String("source", g.Source),
				attribute.Bool("synthetic", g.Synthetic),
			))
		}
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	constants "sysmon/config"
	"sysmon/internal/collector"
	"sysmon/internal/config"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
	"sysmon/internal/process"
	"sysmon/internal/publisher"
	"sysmon/internal/server"
	"sysmon/internal/service"
)

// NewRunCmd creates the run command, the long-running sampler.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sample continuously and serve snapshots",
		Long: `Run the sampling loop in the foreground.

Every interval a snapshot is taken and pushed to SSE clients on
/api/events, the snapshot cache, Prometheus (/metrics) and, when
otel.endpoint is set, an OTLP collector.

Examples:
  sysmon run                          # use ~/.sysmon/config.yaml
  sysmon run --config /etc/sysmon.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg)
		},
	}
}

func runDaemon(ctx context.Context, cfg *config.Config) (err error) {
	log := newLogger(cfg, true)
	defer log.Close()
	logger.SetDefault(log)

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			log.Error("panic in daemon: %v\n%s", r, buf[:n])
			err = fmt.Errorf("daemon panic: %v", r)
		}
		log.Info("daemon exiting, pid %d", os.Getpid())
	}()

	lock, err := process.Acquire(process.DefaultPIDPath())
	if err != nil {
		if errors.Is(err, process.ErrAlreadyRunning) {
			return fmt.Errorf("sysmon is already running (lock %s)", process.DefaultPIDPath())
		}
		return err
	}
	defer lock.Release()

	log.Info("daemon starting, pid %d, config %q", os.Getpid(), cfg.File())

	col := newCollector(cfg, log)
	pub := publisher.New(log)
	latest := metrics.NewLatest()
	cache := newCache(cfg)
	notifier := service.NewNotifier(log)

	pub.Subscribe("latest", publisher.SnapshotFunc(func(s *metrics.Snapshot) error {
		latest.Store(s)
		return nil
	}))
	pub.Subscribe("cache", publisher.SnapshotFunc(cache.Save))
	pub.Subscribe("systemd", publisher.ConsumerFunc(func(_ context.Context, ev publisher.Event) error {
		if ev.Name == constants.EVENT_BACKEND_ERROR {
			notifier.Status("degraded: " + ev.Message)
		} else {
			notifier.Status("sampling")
		}
		return nil
	}))

	var gatherer prometheus.Gatherer
	if cfg.Prometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			metrics.NewPrometheusCollector(latest),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		gatherer = reg
	}

	if cfg.OTel.Endpoint != "" {
		hostname, _ := os.Hostname()
		exp, err := metrics.NewOTelExporter(ctx, metrics.OTelConfig{
			Endpoint: cfg.OTel.Endpoint,
			Insecure: cfg.OTel.Insecure,
			Headers:  cfg.OTel.Headers,
			Interval: cfg.OTel.Interval,
			Hostname: hostname,
		}, latest)
		if err != nil {
			log.Warning("OTLP export disabled: %v", err)
		} else {
			log.Info("exporting OTLP metrics to %s every %s", cfg.OTel.Endpoint, cfg.OTel.Interval)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.HTTP_SHUTDOWN_SEC*time.Second)
				defer cancel()
				if err := exp.Shutdown(shutdownCtx); err != nil {
					log.Warning("OTLP shutdown: %v", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	if cfg.Serve {
		hub := server.NewHub(log)
		pub.Subscribe("sse", hub)
		srv := server.New(col, hub, server.Options{Addr: cfg.ListenAddr, Gatherer: gatherer, Log: log})
		go func() { serveErr <- srv.ListenAndServe(ctx) }()
	}

	if iv := service.WatchdogInterval(); iv > 0 {
		go func() {
			ticker := time.NewTicker(iv)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					notifier.Watchdog()
				}
			}
		}()
	}

	runner := publisher.NewRunner(col, pub, cfg.Interval, log).WithRecoverable(collector.ErrStateCorruption)
	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	notifier.Ready()
	log.Info("sampling every %s, history %d, platform %s", runner.Interval(), cfg.HistoryLength, col.Platform())

	select {
	case err = <-serveErr:
		// listener failed, stop sampling too
		cancel()
		<-runErr
	case err = <-runErr:
		cancel()
		if cfg.Serve {
			if serr := <-serveErr; serr != nil {
				log.Warning("http server: %v", serr)
			}
		}
	}
	notifier.Stopping()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	constants "sysmon/config"
	"sysmon/internal/collector"
	"sysmon/internal/config"
	"sysmon/internal/encoding"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
	"sysmon/internal/sources"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger returns the daemon logger when daemon is set, otherwise a
// stderr logger that only reports warnings and worse.
func newLogger(cfg *config.Config, daemon bool) *logger.Logger {
	if !daemon {
		return logger.NewWithWriter(os.Stderr, logger.LevelWarning)
	}
	log := logger.New(cfg.LogFile)
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	return log
}

func newCollector(cfg *config.Config, log *logger.Logger) *collector.Collector {
	src := sources.NewHostSet(sources.HostOptions{
		ProbeTimeout:  cfg.ProbeTimeout,
		GPUStrategies: cfg.GPU.Strategies,
		GPUSynthetic:  cfg.GPU.Synthetic,
		Log:           log,
	})
	return collector.New(src, collector.Options{
		HistoryLength: cfg.HistoryLength,
		TopProcesses:  cfg.TopProcesses,
		Log:           log,
	})
}

func newCache(cfg *config.Config) *metrics.SnapshotCache {
	return metrics.NewSnapshotCache(cfg.CacheFile, constants.CACHE_MAX_AGE_SECONDS*time.Second)
}

// sampleTwice runs two cycles one interval apart so rates are populated.
func sampleTwice(ctx context.Context, c *collector.Collector, interval time.Duration) (*metrics.Snapshot, error) {
	if _, err := c.Collect(ctx); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(interval):
	}
	return c.Collect(ctx)
}

// acquireSnapshot asks a running daemon first, then the cache file, then
// samples locally. The second return value names where the data came from.
func acquireSnapshot(ctx context.Context, cfg *config.Config, log *logger.Logger) (*metrics.Snapshot, string, error) {
	if cfg.Serve {
		client := &http.Client{Timeout: constants.PROBE_TIMEOUT_SECONDS * time.Second}
		var s metrics.Snapshot
		url := "http://" + cfg.ListenAddr + "/api/snapshot"
		err := encoding.FetchCBOR(ctx, client, url, &s)
		if err == nil {
			s.EnsureComplete()
			return &s, "daemon", nil
		}
		log.Debug("daemon unavailable at %s: %v", url, err)
	}

	if s, ok := newCache(cfg).Load(); ok {
		return s, "cache", nil
	}

	s, err := sampleTwice(ctx, newCollector(cfg, log), cfg.Interval)
	if err != nil {
		return nil, "", err
	}
	return s, "local", nil
}

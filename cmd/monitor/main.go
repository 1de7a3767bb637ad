// Package main runs the RegPulse monitoring daemon: the recurring
// fetch→dedup→score→publish loop over the configured regulatory sources.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RegPulseAI/regpulse/engine/dedup"
	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/engine/feed"
	"github.com/RegPulseAI/regpulse/engine/monitor"
	"github.com/RegPulseAI/regpulse/engine/score"
	"github.com/RegPulseAI/regpulse/pkg/config"
	"github.com/RegPulseAI/regpulse/pkg/metrics"
	"github.com/RegPulseAI/regpulse/pkg/natsutil"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("config load failed", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg, *once, logger); err != nil {
		logger.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, once bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := dedup.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	registry := feed.DefaultRegistry(cfg.Monitor.Sources, cfg.Monitor.FetchLimit, logger)
	if len(registry.Adapters()) == 0 {
		return fmt.Errorf("no valid feed sources configured")
	}

	scorer := score.NewScorer(score.Weights{
		Jurisdiction:    cfg.Scoring.JurisdictionWeight,
		Industry:        cfg.Scoring.IndustryWeight,
		Keyword:         cfg.Scoring.KeywordWeight,
		Recency:         cfg.Scoring.RecencyWeight,
		RecencyHorizon:  cfg.Scoring.RecencyHorizon,
		HighThreshold:   cfg.Scoring.HighThreshold,
		MediumThreshold: cfg.Scoring.MediumThreshold,
	})

	profile := domain.BusinessProfile{
		Industry:             cfg.Profile.Industry,
		Jurisdictions:        cfg.Profile.Jurisdictions,
		BusinessSize:         cfg.Profile.BusinessSize,
		RegisteredActivities: cfg.Profile.RegisteredActivities,
	}
	logger.Info("scoring profile loaded",
		"industry", profile.Industry,
		"jurisdictions", profile.Jurisdictions,
		"fingerprint", profile.Fingerprint())

	sinks := []monitor.Sink{monitor.NewLogSink(logger)}
	if cfg.NATS.URL != "" {
		nc, err := natsutil.Connect(cfg.NATS.URL, "regpulse-monitor", logger)
		if err != nil {
			logger.Warn("nats unavailable, continuing with log sink only", "err", err)
		} else {
			defer nc.Drain()
			sinks = append(sinks, monitor.NewNATSSink(nc, cfg.NATS.Subject))
		}
	}

	reg := metrics.New()
	reg.ServeAsync(cfg.Server.MetricsPort)

	m := monitor.New(registry, store, scorer, profile, sinks, monitor.Options{
		Interval:    cfg.Monitor.Interval,
		BackoffBase: cfg.Monitor.BackoffBase,
		BackoffMax:  cfg.Monitor.BackoffMax,
	}, reg, logger)

	if once {
		stats := m.RunCycle(ctx)
		logger.Info("cycle complete",
			"fetched", stats.Fetched, "new", stats.New,
			"published", stats.Published, "failures", len(stats.Failures))
		return nil
	}

	logger.Info("monitor starting", "interval", cfg.Monitor.Interval, "sources", cfg.Monitor.Sources)
	m.Run(ctx)
	logger.Info("monitor stopped")
	return nil
}

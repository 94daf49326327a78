package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/costs"
	"askmeter-hq/askproxy/pkg/ledger"
	"askmeter-hq/askproxy/pkg/ledger/recorder"
	"askmeter-hq/askproxy/pkg/ledger/retention"
	"askmeter-hq/askproxy/pkg/ledger/storage"
	"askmeter-hq/askproxy/pkg/proxy"
	"askmeter-hq/askproxy/pkg/server"
	"askmeter-hq/askproxy/pkg/telemetry/health"
	"askmeter-hq/askproxy/pkg/telemetry/metrics"
	"askmeter-hq/askproxy/pkg/telemetry/tracing"
	"askmeter-hq/askproxy/pkg/upstream"
	"askmeter-hq/askproxy/pkg/users"
)

// app holds every long-lived component of a running proxy.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracer    *tracing.Tracer
	policy    *users.Policy
	collector *metrics.Collector
	client    *upstream.Client
	asker     *proxy.Asker
	health    *health.Checker

	store    ledger.Storage
	recorder *recorder.Recorder
	pruner   *retention.Pruner

	server *server.Server
}

// newApp builds the component graph. On error every component created so
// far is released.
func newApp(cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
			a = nil
		}
	}()

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return a, fmt.Errorf("initialize tracing: %w", err)
	}

	a.policy, err = users.NewPolicy(cfg.Users)
	if err != nil {
		return a, fmt.Errorf("initialize user policy: %w", err)
	}

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry(),
		metrics.WithLabelPolicy(a.policy))

	a.client, err = upstream.New(cfg.Upstream,
		upstream.WithLogger(logger),
		upstream.WithTracePropagation(a.tracer.Enabled()),
	)
	if err != nil {
		return a, fmt.Errorf("initialize upstream client: %w", err)
	}

	calculator, err := costs.NewCalculator(cfg.Pricing)
	if err != nil {
		return a, fmt.Errorf("initialize cost calculator: %w", err)
	}

	a.health = health.New(health.DefaultCheckTimeout)

	opts := []proxy.AskerOption{
		proxy.WithTracer(a.tracer),
		proxy.WithTimeout(cfg.Upstream.Timeout),
		proxy.WithDefaultUser(cfg.Users.Default),
		proxy.WithLogger(logger),
	}

	if cfg.Ledger.Enabled {
		a.store, err = storage.New(cfg.Ledger)
		if err != nil {
			return a, fmt.Errorf("initialize ledger storage: %w", err)
		}
		a.recorder = recorder.NewRecorder(a.store, recorder.FromLedgerConfig(cfg.Ledger))
		a.pruner = retention.NewPruner(a.store, retention.FromRetentionConfig(cfg.Ledger.Retention))
		opts = append(opts, proxy.WithRecorder(a.recorder))

		if p, ok := a.store.(health.Pinger); ok {
			a.health.RegisterCheck("ledger", health.PingCheck(p))
		} else {
			a.health.RegisterCheck("ledger", func(context.Context) error { return nil })
		}
	} else {
		a.health.RegisterDisabled("ledger")
	}

	a.asker = proxy.NewAsker(a.client, a.collector, calculator, opts...)

	a.server = server.NewServer(&cfg.Server, cfg.Telemetry.Metrics.Path, server.Dependencies{
		Asker:     a.asker,
		Metrics:   a.collector,
		Ledger:    a.store,
		Health:    a.health,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	return a, nil
}

// close releases components in reverse dependency order. The recorder is
// drained before its storage is closed.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.pruner != nil {
		a.pruner.Stop()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close recorder: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger storage: %w", err))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close upstream client: %w", err))
		}
	}
	if a.policy != nil {
		if err := a.policy.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close user policy: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}

	return errors.Join(errs...)
}

// logTotals writes the final instrument totals.
func (a *app) logTotals() {
	if a.collector == nil {
		return
	}
	totals, err := a.collector.Totals()
	if err != nil {
		a.logger.Warn("failed to gather final totals", "error", err)
		return
	}
	a.logger.Info("final totals",
		"requests", totals.Requests,
		"errors", totals.Errors,
		"tokens", totals.Tokens,
		"cost", totals.Cost,
		"users", len(totals.ByUser),
	)
}

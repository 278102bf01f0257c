package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/artpar/runway/internal/shell/journal"
	"github.com/artpar/runway/internal/shell/metrics"
	"github.com/artpar/runway/internal/shell/platform"
	"github.com/artpar/runway/internal/shell/rollout"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      *Config
	logger   *slog.Logger
	platform platform.Platform
	journal  journal.Journal // nil when journal.dsn is empty
	metrics  *metrics.Collector
}

// newApp loads configuration and wires the platform, journal and metrics.
func newApp(configPath string, stderr io.Writer) (*app, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, &CLIError{Op: "load config", Err: err, ExitCode: ExitConfigError}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &CLIError{Op: "validate config", Err: err, ExitCode: ExitConfigError}
	}

	logger := SetupLogger(cfg, stderr)

	p, err := newPlatform(cfg, logger)
	if err != nil {
		return nil, &CLIError{Op: "create platform", Err: err, ExitCode: ExitConfigError}
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		platform: p,
		metrics:  metrics.NewCollector(),
	}

	if cfg.Journal.DSN != "" {
		j, err := journal.NewSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			return nil, &CLIError{Op: "open journal", Err: err, ExitCode: ExitJournalError}
		}
		a.journal = j
	}

	return a, nil
}

// newPlatform creates the platform client selected by platform.kind.
func newPlatform(cfg *Config, logger *slog.Logger) (platform.Platform, error) {
	switch cfg.Platform.Kind {
	case "knative":
		kcfg := platform.DefaultKnativeConfig()
		kcfg.Endpoint = cfg.Endpoint()
		kcfg.Namespace = cfg.Service.Project
		kcfg.Token = cfg.Platform.Token
		logger.Debug("using knative platform", "endpoint", kcfg.Endpoint, "namespace", kcfg.Namespace)
		return platform.NewKnativePlatform(kcfg), nil
	case "memory":
		logger.Debug("using memory platform", "fixture", cfg.Platform.Fixture)
		return platform.LoadMemoryFixture(cfg.Platform.Fixture)
	default:
		return nil, fmt.Errorf("%w: unknown platform kind %q", ErrInvalidConfig, cfg.Platform.Kind)
	}
}

// deployer builds the rollout deployer for the configured service.
func (a *app) deployer(dryRun bool) *rollout.Deployer {
	controller := rollout.NewController(a.platform, rollout.ControllerConfig{
		Service:         a.cfg.Service.ServiceName(),
		ApplyTimeout:    a.cfg.Rollout.ApplyTimeout,
		Confirm:         a.cfg.Rollout.Confirm,
		ConfirmInterval: a.cfg.Rollout.ConfirmInterval,
	}, a.logger)

	opts := []rollout.DeployerOption{rollout.WithObserver(a.metrics)}
	if a.journal != nil {
		opts = append(opts, rollout.WithRecorder(a.journal))
	}

	return rollout.NewDeployer(a.platform, controller, rollout.DeployerConfig{
		Ratio:  a.cfg.Rollout.Split,
		DryRun: dryRun,
	}, a.logger, opts...)
}

// pushMetrics delivers collected metrics when a Pushgateway is configured.
// Failures are logged only.
func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("failed to push metrics", "error", err)
	}
}

// Close releases the journal connection.
func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", "error", err)
		}
	}
}

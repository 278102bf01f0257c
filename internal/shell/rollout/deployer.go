package rollout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/core/traffic"
	"github.com/artpar/runway/internal/shell/catalog"
	"github.com/artpar/runway/internal/shell/platform"
)

// =============================================================================
// Collaborators
// =============================================================================

// Recorder persists rollout audit records.
type Recorder interface {
	RecordRollout(ctx context.Context, record *domain.RolloutRecord) error
}

// Observer receives rollout measurements.
type Observer interface {
	ObserveRollout(record *domain.RolloutRecord, duration time.Duration)
}

// =============================================================================
// Deployer
// =============================================================================

// DeployerConfig configures a Deployer.
type DeployerConfig struct {
	Ratio  traffic.SplitRatio
	DryRun bool
}

// Deployer runs the rollout of one deployment: snapshot the catalog,
// allocate, apply, then record the attempt.
type Deployer struct {
	source     *catalog.Source
	controller *Controller
	config     DeployerConfig
	recorder   Recorder
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// DeployerOption customizes a Deployer.
type DeployerOption func(*Deployer)

// WithRecorder records every rollout attempt.
func WithRecorder(r Recorder) DeployerOption {
	return func(d *Deployer) { d.recorder = r }
}

// WithObserver reports every rollout attempt.
func WithObserver(o Observer) DeployerOption {
	return func(d *Deployer) { d.observer = o }
}

// NewDeployer creates a deployer that applies through controller.
func NewDeployer(p platform.Platform, controller *Controller, config DeployerConfig, logger *slog.Logger, opts ...DeployerOption) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Ratio.Validate() != nil {
		config.Ratio = traffic.DefaultSplitRatio()
	}

	d := &Deployer{
		source:     catalog.NewSource(p, controller.config.Service),
		controller: controller,
		config:     config,
		logger:     logger.With("component", "deployer", "service", controller.config.Service),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result describes one rollout.
type Result struct {
	Record   *domain.RolloutRecord
	Decision traffic.Decision
	Table    domain.TrafficTable
	Applied  *Applied // nil for dry runs
}

// Plan computes the traffic table for a directive without applying it.
func (d *Deployer) Plan(ctx context.Context, directive domain.RolloutDirective) (domain.TrafficTable, traffic.Decision, error) {
	table, decision, _, err := d.plan(ctx, directive)
	return table, decision, err
}

// plan also returns the generation of the snapshot the table was computed
// from. The snapshot read is bounded by the controller's apply timeout.
func (d *Deployer) plan(ctx context.Context, directive domain.RolloutDirective) (domain.TrafficTable, traffic.Decision, string, error) {
	if directive.LatestRevisionID == "" {
		return nil, "", "", domain.ErrInvalidDirective
	}

	ctx, cancel := context.WithTimeout(ctx, d.controller.config.ApplyTimeout)
	defer cancel()

	snap, err := d.source.Snapshot(ctx)
	if err != nil {
		kind := ErrCatalogUnavailable
		if errors.Is(err, platform.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			kind = ErrApplyTimeout
		}
		return nil, "", "", NewApplyError("Plan", d.source.Service(), nil, kind, err)
	}

	return traffic.Allocate(directive, snap, d.config.Ratio), traffic.Explain(directive, snap), snap.Generation, nil
}

// Deploy allocates and applies traffic for a deployment. Journal and metrics
// failures are logged and never fail the deployment.
func (d *Deployer) Deploy(ctx context.Context, directive domain.RolloutDirective) (*Result, error) {
	started := d.now()
	record := domain.NewRolloutRecord(d.source.Service(), directive, started)
	logger := d.logger.With("rollout_id", record.ID)

	table, decision, generation, err := d.plan(ctx, directive)
	if err != nil {
		d.finish(ctx, logger, record, started, err)
		return &Result{Record: record}, err
	}
	record.Traffic = table

	logger.Info("traffic planned",
		"latest_revision", directive.LatestRevisionID,
		"pinned_revision", directive.PinnedRevisionID,
		"decision", decision,
		"generation", generation,
		"ratio", d.config.Ratio.String(),
		"traffic", table.String(),
	)
	if decision == traffic.DecisionPinMissing {
		logger.Warn("pinned revision not found, cutting over",
			"pinned_revision", directive.PinnedRevisionID,
		)
	}

	result := &Result{Record: record, Decision: decision, Table: table}

	if d.config.DryRun {
		record.Outcome = domain.OutcomePlanned
		d.finish(ctx, logger, record, started, nil)
		return result, nil
	}

	applied, err := d.controller.ApplyAt(ctx, table, generation)
	if applied != nil {
		record.Previous = applied.Previous
		result.Applied = applied
	}
	d.finish(ctx, logger, record, started, err)
	return result, err
}

// finish sets the outcome, then records and observes the attempt.
func (d *Deployer) finish(ctx context.Context, logger *slog.Logger, record *domain.RolloutRecord, started time.Time, err error) {
	if record.Outcome == "" {
		record.Outcome = Outcome(err)
	}
	if err != nil {
		record.ErrorMessage = err.Error()
		logger.Error("rollout failed", "outcome", record.Outcome, "error", err)
	}

	if d.recorder != nil {
		// Detached from ctx so timed-out rollouts are still recorded.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := d.recorder.RecordRollout(recCtx, record); rerr != nil {
			logger.Warn("failed to record rollout", "error", rerr)
		}
	}

	if d.observer != nil {
		d.observer.ObserveRollout(record, d.now().Sub(started))
	}
}

// IsRetryable reports whether the surrounding pipeline may retry the deploy
// step after err. Invalid input and invalid tables are never retryable.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidTrafficTable), errors.Is(err, domain.ErrInvalidDirective):
		return false
	default:
		return errors.Is(err, ErrApplyTimeout) ||
			errors.Is(err, ErrConcurrentModification) ||
			errors.Is(err, ErrCatalogUnavailable)
	}
}

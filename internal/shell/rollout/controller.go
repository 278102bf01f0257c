// Package rollout applies traffic tables to the serving platform.
// This is part of the Imperative Shell - it performs the catalog reads and the
// single traffic write of a deployment, delegating decisions to the pure
// traffic package.
package rollout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/artpar/runway/internal/core/traffic"
	"github.com/artpar/runway/internal/shell/catalog"
	"github.com/artpar/runway/internal/shell/platform"
)

// =============================================================================
// Controller Configuration
// =============================================================================

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Service is the platform service whose traffic is managed.
	Service string

	// ApplyTimeout bounds the snapshot, the write and the confirmation.
	ApplyTimeout time.Duration

	// Confirm polls the live traffic after the write until it matches.
	Confirm bool

	// ConfirmInterval is the poll period while confirming.
	ConfirmInterval time.Duration
}

// DefaultControllerConfig returns default controller configuration.
func DefaultControllerConfig(service string) ControllerConfig {
	return ControllerConfig{
		Service:         service,
		ApplyTimeout:    60 * time.Second,
		Confirm:         true,
		ConfirmInterval: 2 * time.Second,
	}
}

// Applied describes a successfully applied traffic table.
type Applied struct {
	Service    string
	Table      domain.TrafficTable
	Previous   domain.TrafficTable
	Generation string // Generation the write was made against
	AppliedAt  time.Time
	Confirmed  bool
}

// =============================================================================
// Controller
// =============================================================================

// Controller is the only component that writes a service's traffic
// configuration. Each successful Apply performs exactly one write; a failed
// validation performs none. Failed writes are surfaced, never retried.
type Controller struct {
	platform platform.Platform
	source   *catalog.Source
	config   ControllerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewController creates a new controller for one service.
func NewController(p platform.Platform, config ControllerConfig, logger *slog.Logger) *Controller {
	if config.ApplyTimeout <= 0 {
		config.ApplyTimeout = 60 * time.Second
	}
	if config.ConfirmInterval <= 0 {
		config.ConfirmInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		platform: p,
		source:   catalog.NewSource(p, config.Service),
		config:   config,
		logger:   logger.With("component", "rollout_controller", "service", config.Service),
		now:      time.Now,
	}
}

// Apply validates table against a fresh catalog snapshot and submits it.
//
// Applying the same table twice yields the same routing; the second call is
// another successful write, not an error.
func (c *Controller) Apply(ctx context.Context, table domain.TrafficTable) (*Applied, error) {
	return c.ApplyAt(ctx, table, "")
}

// ApplyAt is Apply for a table computed from the snapshot at generation.
// If the service has moved past generation, nothing is written and the
// error is ErrConcurrentModification. An empty generation accepts the
// current one.
func (c *Controller) ApplyAt(ctx context.Context, table domain.TrafficTable, generation string) (*Applied, error) {
	const op = "Apply"
	service := c.config.Service
	table = table.Clone()

	ctx, cancel := context.WithTimeout(ctx, c.config.ApplyTimeout)
	defer cancel()

	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		kind := ErrCatalogUnavailable
		if errors.Is(err, platform.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			kind = ErrApplyTimeout
		}
		return nil, NewApplyError(op, service, table, kind, err)
	}

	if generation != "" && snap.Generation != generation {
		c.logger.Warn("service changed since the traffic table was computed",
			"planned_generation", generation,
			"generation", snap.Generation,
		)
		return nil, NewApplyError(op, service, table, ErrConcurrentModification,
			fmt.Errorf("generation %s is stale (current %s)", generation, snap.Generation))
	}

	if err := traffic.ValidateTable(table, snap); err != nil {
		c.logger.Error("refusing invalid traffic table",
			"traffic", table.String(),
			"error", err,
		)
		return nil, NewApplyError(op, service, table, ErrInvalidTrafficTable, err)
	}

	c.logger.Debug("submitting traffic table",
		"traffic", table.String(),
		"previous", snap.Traffic.String(),
		"generation", snap.Generation,
	)

	if err := c.platform.UpdateTraffic(ctx, service, table, snap.Generation); err != nil {
		return nil, NewApplyError(op, service, table, classifyWriteError(err), err)
	}

	applied := &Applied{
		Service:    service,
		Table:      table,
		Previous:   snap.Traffic,
		Generation: snap.Generation,
		AppliedAt:  c.now().UTC(),
	}

	if c.config.Confirm {
		if err := c.confirm(ctx, table); err != nil {
			return nil, NewApplyError(op, service, table, ErrApplyTimeout, err)
		}
		applied.Confirmed = true
	}

	c.logger.Info("traffic applied",
		"traffic", table.String(),
		"previous", snap.Traffic.String(),
		"confirmed", applied.Confirmed,
	)
	return applied, nil
}

// confirm polls the live traffic until it routes like table or ctx expires.
// Reads are repeated; the write never is.
func (c *Controller) confirm(ctx context.Context, table domain.TrafficTable) error {
	ticker := time.NewTicker(c.config.ConfirmInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		live, _, err := c.platform.Traffic(ctx, c.config.Service)
		if err == nil && live.SameRouting(table) {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New("live traffic is " + live.String())
		}

		select {
		case <-ctx.Done():
			return errors.Join(errors.New("update accepted but not visible"), lastErr)
		case <-ticker.C:
		}
	}
}

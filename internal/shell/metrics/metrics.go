// Package metrics exposes rollout measurements as Prometheus metrics.
//
// Collectors live on a private registry so a one-shot deploy can push
// exactly its own series to a Pushgateway.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ErrPushFailed is returned when metrics cannot be delivered to the Pushgateway.
var ErrPushFailed = errors.New("metrics push failed")

// Collector records rollout attempts.
type Collector struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	percent  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runway_rollout_attempts_total",
				Help: "Total number of traffic rollout attempts by outcome",
			},
			[]string{"service", "outcome"},
		),
		percent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runway_traffic_percent",
				Help: "Percent of traffic assigned to a revision by the last applied rollout",
			},
			[]string{"service", "revision"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runway_apply_duration_seconds",
				Help:    "Time taken to plan and apply a traffic table",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"service"},
		),
	}

	c.registry.MustRegister(c.attempts, c.percent, c.duration)
	return c
}

// Registry returns the registry holding the rollout collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRollout records one attempt. Traffic gauges only change when the
// routing actually changed.
func (c *Collector) ObserveRollout(record *domain.RolloutRecord, duration time.Duration) {
	c.attempts.WithLabelValues(record.Service, string(record.Outcome)).Inc()
	c.duration.WithLabelValues(record.Service).Observe(duration.Seconds())

	if record.Outcome != domain.OutcomeApplied {
		return
	}
	c.percent.DeletePartialMatch(prometheus.Labels{"service": record.Service})
	for _, target := range record.Traffic {
		c.percent.WithLabelValues(record.Service, target.RevisionID).Set(float64(target.Percent))
	}
}

// Push sends every collected series to a Pushgateway under job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).Gatherer(c.registry).PushContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	return nil
}

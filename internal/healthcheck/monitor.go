package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
)

// Monitor is the only writer of its Snapshot.
type Monitor struct {
	registry *backend.Registry
	prober   Prober
	snapshot *Snapshot
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	events   chan<- metrics.MetricEvent

	roundMutex sync.Mutex
	published  bool
}

// NewMonitor wires a monitor. timeout bounds a whole probe round; events may
// be nil.
func NewMonitor(
	registry *backend.Registry,
	prober Prober,
	snapshot *Snapshot,
	interval time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
	events chan<- metrics.MetricEvent,
) *Monitor {
	return &Monitor{
		registry: registry,
		prober:   prober,
		snapshot: snapshot,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "health_monitor")),
		events:   events,
	}
}

// Snapshot returns the snapshot this monitor publishes to.
func (m *Monitor) Snapshot() *Snapshot {
	return m.snapshot
}

// Run probes immediately, then once per interval, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Health monitor started",
		slog.Duration("interval", m.interval),
		slog.Duration("timeout", m.timeout),
		slog.Int("backends", m.registry.Len()))
	defer m.logger.Info("Health monitor stopped")

	m.Round(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Round(ctx)
		}
	}
}

// Round probes every backend concurrently and publishes the results. It
// returns false when ctx was cancelled before the round finished, in which
// case nothing is published.
func (m *Monitor) Round(ctx context.Context) bool {
	m.roundMutex.Lock()
	defer m.roundMutex.Unlock()

	roundCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	backends := m.registry.All()
	results := make([]bool, len(backends))

	var g errgroup.Group
	for i, b := range backends {
		g.Go(func() error {
			if err := m.prober.Probe(roundCtx, b); err != nil {
				m.logger.Debug("Health probe failed",
					slog.String("backend", b.Address()),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return false
	}

	prev, ok := m.snapshot.replace(results)
	if !ok {
		m.logger.Error("Health snapshot size mismatch",
			slog.Int("expected", len(prev)),
			slog.Int("got", len(results)))
		return false
	}

	m.reportTransitions(backends, prev, results)
	m.published = true
	return true
}

func (m *Monitor) reportTransitions(backends []*backend.Backend, prev, next []bool) {
	for i, b := range backends {
		if m.published && prev[i] == next[i] {
			continue
		}

		if next[i] {
			m.logger.Info("Backend is up", slog.String("backend", b.Address()))
		} else {
			m.logger.Warn("Backend is down", slog.String("backend", b.Address()))
		}

		m.emitEvent(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Backend:   b.Address(),
			Healthy:   next[i],
		})
	}
}

func (m *Monitor) emitEvent(event metrics.MetricEvent) {
	if m.events == nil {
		return
	}

	select {
	case m.events <- event:
	default:
	}
}

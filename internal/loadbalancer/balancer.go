package loadbalancer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/rr-balancer/config"
	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/healthcheck"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/internal/ratelimit"
	"github.com/angeloszaimis/rr-balancer/internal/strategy"
)

type options struct {
	prober healthcheck.Prober
	now    func() time.Time
	events chan<- metrics.MetricEvent
}

type Option func(*options)

// WithProber replaces the HTTP prober used by the health monitor.
func WithProber(p healthcheck.Prober) Option {
	return func(o *options) { o.prober = p }
}

// WithClock replaces the rate limiter's clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithEvents sends health transitions to a metrics collector.
func WithEvents(events chan<- metrics.MetricEvent) Option {
	return func(o *options) { o.events = events }
}

type Balancer struct {
	logger   *slog.Logger
	registry *backend.Registry
	limiter  *ratelimit.FixedWindow
	selector *strategy.RoundRobin
	snapshot *healthcheck.Snapshot
	monitor  *healthcheck.Monitor

	lifecycleMutex sync.Mutex
	started        bool
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// New builds a balancer over cfg.Servers. Every backend starts unhealthy
// until the first probe round completes. Errors wrap ErrInvalidConfiguration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Balancer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.prober == nil {
		o.prober = healthcheck.NewHTTPProber(cfg.ActiveHealthCheckPath, cfg.HealthCheckTimeout())
	}

	addrs := make([]backend.Address, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		addrs = append(addrs, backend.Address{Host: s.IP, Port: s.Port})
	}

	registry, err := backend.NewRegistry(addrs, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	snapshot := healthcheck.NewSnapshot(registry.Len(), false)

	return &Balancer{
		logger:   logger.With(slog.String("component", "balancer")),
		registry: registry,
		limiter:  ratelimit.NewFixedWindow(cfg.RateLimitWindow(), cfg.MaxRequestsPerWindow, o.now, logger),
		selector: strategy.NewRoundRobinStrategy(),
		snapshot: snapshot,
		monitor: healthcheck.NewMonitor(
			registry,
			o.prober,
			snapshot,
			cfg.HealthCheckInterval(),
			cfg.HealthCheckTimeout(),
			logger,
			o.events,
		),
	}, nil
}

// StartBackgroundTasks launches the health monitor and the rate limit
// sweeper. They run until ctx is cancelled or Stop is called. A second call
// returns ErrAlreadyStarted.
func (b *Balancer) StartBackgroundTasks(ctx context.Context) error {
	b.lifecycleMutex.Lock()
	defer b.lifecycleMutex.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}
	b.started = true

	ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.monitor.Run(ctx)
	}()
	go func() {
		defer b.wg.Done()
		b.limiter.Run(ctx)
	}()

	b.logger.Info("Background tasks started", slog.Int("backends", b.registry.Len()))
	return nil
}

// Stop cancels the background tasks and waits for them to exit or for ctx
// to expire, whichever comes first.
func (b *Balancer) Stop(ctx context.Context) error {
	b.lifecycleMutex.Lock()
	cancel := b.cancel
	b.lifecycleMutex.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Background tasks stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Timed out waiting for background tasks", slog.String("error", ctx.Err().Error()))
		return ctx.Err()
	}
}

// GetServer returns the next healthy backend for clientID. A rate limited
// client gets ErrRateLimitExceeded without moving the cursor; a full pass
// over unhealthy backends gets ErrNoHealthyBackend.
func (b *Balancer) GetServer(clientID string) (*backend.Backend, error) {
	if !b.limiter.Admit(clientID) {
		return nil, ErrRateLimitExceeded
	}

	i, ok := b.selector.Next(b.snapshot.Load())
	if !ok {
		return nil, ErrNoHealthyBackend
	}

	return b.registry.At(i), nil
}

// RefreshHealth runs one probe round synchronously.
func (b *Balancer) RefreshHealth(ctx context.Context) bool {
	return b.monitor.Round(ctx)
}

// Backends returns the registry in index order.
func (b *Balancer) Backends() []*backend.Backend {
	return b.registry.All()
}

// HealthSnapshot returns a copy of the current health vector.
func (b *Balancer) HealthSnapshot() []bool {
	current := b.snapshot.Load()
	out := make([]bool, len(current))
	copy(out, current)
	return out
}

// Cursor returns the selector's cursor.
func (b *Balancer) Cursor() int {
	return b.selector.Cursor()
}

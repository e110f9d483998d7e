package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/angeloszaimis/rr-balancer/config"
	"github.com/angeloszaimis/rr-balancer/internal/handler"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/pkg/logger"
)

const metricsBufferSize = 1024

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.json (default: ./config.json or ./config/config.json)")
	pflag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("load balancer exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, true, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	lb, err := newBalancer(cfg, log, collector)
	if err != nil {
		return err
	}

	if err := lb.StartBackgroundTasks(ctx); err != nil {
		return fmt.Errorf("start background tasks: %w", err)
	}

	lbHandler := handler.NewLoadBalancerHandler(log, lb, collector, cfg.TrustForwardedFor)

	srv, err := httpserver.New(cfg.ListenAddress(), setupRouter(lbHandler, collector), log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Load balancer started",
		slog.String("addr", cfg.ListenAddress()),
		slog.Int("backends", len(cfg.Servers)),
		slog.Int("max_requests_per_window", cfg.MaxRequestsPerWindow),
		slog.Duration("window", cfg.RateLimitWindow()))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.String("error", err.Error()))
		}
	case serveErr = <-srvErrCh:
		cancel()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := lb.Stop(stopCtx); err != nil {
		log.Error("Error stopping background tasks", slog.String("error", err.Error()))
	}

	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}

func newBalancer(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (*loadbalancer.Balancer, error) {
	var opts []loadbalancer.Option
	if collector != nil {
		opts = append(opts, loadbalancer.WithEvents(collector.EventChannel()))
	}

	lb, err := loadbalancer.New(cfg, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("create balancer: %w", err)
	}

	for _, b := range lb.Backends() {
		log.Info("Registered backend", slog.Int("index", b.ID()), slog.String("address", b.Address()))
	}

	return lb, nil
}

package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
)

// Balancer is the part of loadbalancer.Balancer the handler needs.
type Balancer interface {
	GetServer(clientID string) (*backend.Backend, error)
}

type LoadBalancerHandler struct {
	logger            *slog.Logger
	balancer          Balancer
	metricsCollector  *metrics.Collector
	trustForwardedFor bool
	rejectLog         rate.Sometimes
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func NewLoadBalancerHandler(
	logger *slog.Logger,
	balancer Balancer,
	collector *metrics.Collector,
	trustForwardedFor bool,
) *LoadBalancerHandler {
	return &LoadBalancerHandler{
		logger:            logger.With(slog.String("component", "handler")),
		balancer:          balancer,
		metricsCollector:  collector,
		trustForwardedFor: trustForwardedFor,
		rejectLog:         rate.Sometimes{First: 10, Interval: time.Second},
	}
}

func (lb *LoadBalancerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := lb.clientIP(r)

	lb.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto))

	nextServer, err := lb.balancer.GetServer(clientIP)
	if err != nil {
		lb.reject(w, clientIP, err)
		return
	}

	address := nextServer.Address()
	lb.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Backend:   address,
		Client:    clientIP,
	})
	lb.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventBackendSelected,
		Timestamp: time.Now(),
		Backend:   address,
		Client:    clientIP,
	})

	lb.logger.Debug("Forwarding to backend",
		slog.String("client", clientIP),
		slog.String("backend", address))

	w.Header().Set("X-Backend-Server", address)

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	nextServer.ReverseProxy().ServeHTTP(wrapped, r)

	lb.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Backend:    address,
		Client:     clientIP,
		Duration:   time.Since(start),
		StatusCode: wrapped.statusCode,
	})
}

func (lb *LoadBalancerHandler) reject(w http.ResponseWriter, clientIP string, err error) {
	switch {
	case errors.Is(err, loadbalancer.ErrRateLimitExceeded):
		lb.emitEvent(metrics.MetricEvent{Type: metrics.EventRateLimited, Timestamp: time.Now(), Client: clientIP})
		lb.rejectLog.Do(func() {
			lb.logger.Warn("Rate limit exceeded", slog.String("client", clientIP))
		})
		http.Error(w, "429 Too Many Requests", http.StatusTooManyRequests)

	case errors.Is(err, loadbalancer.ErrNoHealthyBackend):
		lb.emitEvent(metrics.MetricEvent{Type: metrics.EventNoHealthyBackend, Timestamp: time.Now(), Client: clientIP})
		lb.rejectLog.Do(func() {
			lb.logger.Warn("No healthy backends available", slog.String("client", clientIP))
		})
		http.Error(w, "502 Bad Gateway", http.StatusBadGateway)

	default:
		lb.logger.Error("Backend selection failed",
			slog.String("client", clientIP),
			slog.String("error", err.Error()))
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

// clientIP is the peer address, or the first X-Forwarded-For hop when the
// proxy sits behind a trusted one.
func (lb *LoadBalancerHandler) clientIP(r *http.Request) string {
	if lb.trustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (lb *LoadBalancerHandler) emitEvent(event metrics.MetricEvent) {
	if lb.metricsCollector == nil {
		return
	}

	select {
	case lb.metricsCollector.EventChannel() <- event:
	default:
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

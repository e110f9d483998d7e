package main

import (
	"net/http"

	"github.com/angeloszaimis/rr-balancer/internal/handler"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
)

func setupRouter(loadBalancerHandler *handler.LoadBalancerHandler, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", loadBalancerHandler)
	mux.HandleFunc("/metrics", metricsCollector.Handler())

	return mux
}

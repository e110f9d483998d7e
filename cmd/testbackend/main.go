// Testbackend is a small upstream for exercising the load balancer by hand.
// It answers every path with its own name and exposes a health endpoint
// that can be switched off.
//
// Usage:
//
//	go run ./cmd/testbackend --port 8081 --name backend-a
//	curl -X POST localhost:8081/toggle-health
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/spf13/pflag"

	"github.com/angeloszaimis/rr-balancer/pkg/logger"
)

type reply struct {
	Backend string `json:"backend"`
	Method  string `json:"method"`
	Path    string `json:"path"`
}

func main() {
	port := pflag.IntP("port", "p", 8081, "port to listen on")
	name := pflag.String("name", "", "name reported in responses (default: backend-<port>)")
	healthPath := pflag.String("health-path", "/healthcheck", "path answered by the health endpoint")
	pflag.Parse()

	if *name == "" {
		*name = fmt.Sprintf("backend-%d", *port)
	}

	log := logger.New(os.Stdout, "info", false, "dev").With(slog.String("backend", *name))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), newMux(*name, *healthPath, log)); err != nil {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newMux(name, healthPath string, log *slog.Logger) *http.ServeMux {
	var healthy atomic.Bool
	healthy.Store(true)

	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /toggle-health", func(w http.ResponseWriter, r *http.Request) {
		now := !healthy.Load()
		healthy.Store(now)
		log.Info("health toggled", slog.Bool("healthy", now))
		_ = json.NewEncoder(w).Encode(map[string]bool{"healthy": now})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Info("request", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("from", r.RemoteAddr))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply{Backend: name, Method: r.Method, Path: r.URL.Path})
	})

	return mux
}

package backend

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
)

// Backend is a configured downstream server. It is immutable after New.
type Backend struct {
	id    int
	host  string
	port  int
	url   *url.URL
	proxy *httputil.ReverseProxy
}

// New builds the backend at registry index id. It fails on an address that
// cannot form a valid http URL so bad config is caught at startup.
func New(id int, host string, port int, logger *slog.Logger) (*Backend, error) {
	if host == "" {
		return nil, fmt.Errorf("backend %d: empty host", id)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("backend %d: port %d out of range", id, port)
	}

	u, err := url.Parse("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("backend %d: %w", id, err)
	}

	b := &Backend{
		id:   id,
		host: host,
		port: port,
		url:  u,
	}
	b.proxy = httputil.NewSingleHostReverseProxy(u)
	b.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("Backend request failed",
			slog.String("backend", b.Address()),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
	}

	return b, nil
}

// ID returns the registry index.
func (b *Backend) ID() int {
	return b.id
}

func (b *Backend) Host() string {
	return b.host
}

func (b *Backend) Port() int {
	return b.port
}

// Address returns host:port.
func (b *Backend) Address() string {
	return b.url.Host
}

// URL returns the backend base URL. Callers must not modify it.
func (b *Backend) URL() *url.URL {
	return b.url
}

// HealthURL returns the absolute URL probed by the health monitor.
func (b *Backend) HealthURL(path string) string {
	return b.url.ResolveReference(&url.URL{Path: path}).String()
}

// ReverseProxy returns the HTTP reverse proxy for this backend.
func (b *Backend) ReverseProxy() *httputil.ReverseProxy {
	return b.proxy
}

func (b *Backend) String() string {
	return b.Address()
}

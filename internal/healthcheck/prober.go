//go:generate mockgen -source=prober.go -destination=mocks/prober_mock.go -package=mocks
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
)

// Prober checks a single backend. A nil error means healthy.
type Prober interface {
	Probe(ctx context.Context, target *backend.Backend) error
}

// HTTPProber issues GET requests against a fixed health path.
type HTTPProber struct {
	client *http.Client
	path   string
}

// NewHTTPProber returns a prober whose requests never outlive timeout.
func NewHTTPProber(path string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
		path: path,
	}
}

// Probe reports healthy only for a 200 response whose body reads cleanly.
func (p *HTTPProber) Probe(ctx context.Context, target *backend.Backend) error {
	healthURL := target.HealthURL(p.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", "rr-balancer-healthcheck/1.0")

	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check %s: %w", healthURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("health check %s: unexpected status %d", healthURL, res.StatusCode)
	}

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return fmt.Errorf("health check %s: read body: %w", healthURL, err)
	}

	return nil
}

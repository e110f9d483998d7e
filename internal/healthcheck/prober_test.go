package healthcheck_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/healthcheck"
)

var _ = Describe("HTTPProber", func() {
	var (
		server *httptest.Server
		target *backend.Backend
		prober *healthcheck.HTTPProber
	)

	serve := func(h http.HandlerFunc) {
		server = httptest.NewServer(h)
		target = backendFor(server.URL, 0)
	}

	BeforeEach(func() {
		prober = healthcheck.NewHTTPProber("/healthcheck", 200*time.Millisecond)
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("should report healthy on 200 from the health path", func() {
		var gotPath string
		serve(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte("OK"))
		})

		Expect(prober.Probe(context.Background(), target)).To(Succeed())
		Expect(gotPath).To(Equal("/healthcheck"))
	})

	DescribeTable("reports unhealthy on any status other than 200",
		func(status int) {
			serve(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			Expect(prober.Probe(context.Background(), target)).NotTo(Succeed())
		},
		Entry("204", http.StatusNoContent),
		Entry("301", http.StatusMovedPermanently),
		Entry("404", http.StatusNotFound),
		Entry("500", http.StatusInternalServerError),
		Entry("503", http.StatusServiceUnavailable),
	)

	It("should report unhealthy when the body is cut short", func() {
		serve(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("partial"))
		})
		Expect(prober.Probe(context.Background(), target)).NotTo(Succeed())
	})

	It("should report unhealthy when the backend is unreachable", func() {
		serve(func(w http.ResponseWriter, r *http.Request) {})
		server.Close()
		server = nil

		Expect(prober.Probe(context.Background(), target)).NotTo(Succeed())
	})

	It("should give up after the probe timeout", func() {
		release := make(chan struct{})
		serve(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		start := time.Now()
		Expect(prober.Probe(context.Background(), target)).NotTo(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})
})

func backendFor(rawURL string, id int) *backend.Backend {
	u, err := url.Parse(rawURL)
	Expect(err).NotTo(HaveOccurred())
	host, portStr, err := net.SplitHostPort(u.Host)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())

	b, err := backend.New(id, host, port, slog.New(slog.DiscardHandler))
	Expect(err).NotTo(HaveOccurred())
	return b
}

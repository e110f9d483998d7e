package backend_test

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
)

var _ = Describe("Backend", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.DiscardHandler)
	})

	Describe("New", func() {
		It("should expose its index and address", func() {
			b, err := backend.New(2, "127.0.0.1", 8081, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID()).To(Equal(2))
			Expect(b.Host()).To(Equal("127.0.0.1"))
			Expect(b.Port()).To(Equal(8081))
			Expect(b.Address()).To(Equal("127.0.0.1:8081"))
			Expect(b.URL().String()).To(Equal("http://127.0.0.1:8081"))
			Expect(b.String()).To(Equal("127.0.0.1:8081"))
		})

		It("should bracket IPv6 hosts", func() {
			b, err := backend.New(0, "::1", 9000, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Address()).To(Equal("[::1]:9000"))
		})

		It("should build the health URL from the configured path", func() {
			b, err := backend.New(0, "localhost", 8081, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.HealthURL("/healthcheck")).To(Equal("http://localhost:8081/healthcheck"))
		})

		It("should provide the same reverse proxy every time", func() {
			b, err := backend.New(0, "localhost", 8081, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ReverseProxy()).NotTo(BeNil())
			Expect(b.ReverseProxy()).To(BeIdenticalTo(b.ReverseProxy()))
		})

		DescribeTable("rejects malformed addresses",
			func(host string, port int) {
				b, err := backend.New(0, host, port, log)
				Expect(err).To(HaveOccurred())
				Expect(b).To(BeNil())
			},
			Entry("empty host", "", 8080),
			Entry("zero port", "localhost", 0),
			Entry("port too large", "localhost", 65536),
			Entry("host with illegal characters", "bad host%zz", 8080),
		)
	})

	Describe("ReverseProxy", func() {
		It("should forward requests to the backend", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("served " + r.URL.Path))
			}))
			defer server.Close()

			host, port := splitServerURL(server.URL)
			b, err := backend.New(0, host, port, log)
			Expect(err).NotTo(HaveOccurred())

			w := httptest.NewRecorder()
			b.ReverseProxy().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/1", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(w.Body)
			Expect(string(body)).To(Equal("served /users/1"))
		})

		It("should answer 502 when the backend is unreachable", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			host, port := splitServerURL(server.URL)
			server.Close()

			b, err := backend.New(0, host, port, log)
			Expect(err).NotTo(HaveOccurred())

			w := httptest.NewRecorder()
			b.ReverseProxy().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(w.Code).To(Equal(http.StatusBadGateway))
		})
	})
})

var _ = Describe("Registry", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.DiscardHandler)
	})

	It("should index backends by configuration order", func() {
		r, err := backend.NewRegistry([]backend.Address{
			{Host: "10.0.0.1", Port: 80},
			{Host: "10.0.0.2", Port: 80},
			{Host: "10.0.0.3", Port: 80},
		}, log)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Len()).To(Equal(3))

		for i, b := range r.All() {
			Expect(b.ID()).To(Equal(i))
			Expect(r.At(i)).To(BeIdenticalTo(b))
		}
		Expect(r.At(1).Address()).To(Equal("10.0.0.2:80"))
	})

	It("should return a copy from All", func() {
		r, err := backend.NewRegistry([]backend.Address{{Host: "10.0.0.1", Port: 80}}, log)
		Expect(err).NotTo(HaveOccurred())

		all := r.All()
		all[0] = nil
		Expect(r.At(0)).NotTo(BeNil())
	})

	It("should refuse an empty pool", func() {
		r, err := backend.NewRegistry(nil, log)
		Expect(err).To(MatchError(backend.ErrEmptyRegistry))
		Expect(r).To(BeNil())
	})

	It("should fail on the first malformed address", func() {
		_, err := backend.NewRegistry([]backend.Address{
			{Host: "10.0.0.1", Port: 80},
			{Host: "10.0.0.2", Port: 0},
		}, log)
		Expect(err).To(HaveOccurred())
	})
})

func splitServerURL(raw string) (string, int) {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	host, portStr, err := net.SplitHostPort(u.Host)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())
	return host, port
}

package metrics

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// maxSamples caps the response times kept per backend for percentiles.
const maxSamples = 1000

type backendStats struct {
	requests      int64
	selections    int64
	healthy       bool
	responseTimes []time.Duration
	statusCodes   map[int]int64
}

type Metrics struct {
	mutex            sync.RWMutex
	backends         map[string]*backendStats
	rateLimited      int64
	noHealthyBackend int64
	startTime        time.Time
}

type Snapshot struct {
	TotalRequests    int64                     `json:"total_requests"`
	RateLimited      int64                     `json:"rate_limited"`
	NoHealthyBackend int64                     `json:"no_healthy_backend"`
	Uptime           time.Duration             `json:"uptime"`
	Backends         map[string]BackendMetrics `json:"backends"`
}

type BackendMetrics struct {
	Requests    int64         `json:"requests"`
	Selections  int64         `json:"selections"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		backends:  make(map[string]*backendStats),
		startTime: time.Now(),
	}
}

// stats must be called with the write lock held.
func (m *Metrics) stats(backend string) *backendStats {
	s, ok := m.backends[backend]
	if !ok {
		s = &backendStats{statusCodes: make(map[int]int64)}
		m.backends[backend] = s
	}
	return s
}

func (m *Metrics) IncrementRequests(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(backend).requests++
}

func (m *Metrics) RecordBackendSelection(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(backend).selections++
}

func (m *Metrics) RecordResponse(backend string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.stats(backend)
	s.responseTimes = append(s.responseTimes, duration)
	if len(s.responseTimes) > maxSamples {
		s.responseTimes = s.responseTimes[1:]
	}
	s.statusCodes[statusCode]++
}

func (m *Metrics) UpdateHealthStatus(backend string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(backend).healthy = healthy
}

func (m *Metrics) RecordRateLimited() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rateLimited++
}

func (m *Metrics) RecordNoHealthyBackend() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.noHealthyBackend++
}

// Snapshot returns a deep copy of the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		RateLimited:      m.rateLimited,
		NoHealthyBackend: m.noHealthyBackend,
		Uptime:           time.Since(m.startTime),
		Backends:         make(map[string]BackendMetrics, len(m.backends)),
	}

	for backend, s := range m.backends {
		snap.TotalRequests += s.requests

		bm := BackendMetrics{
			Requests:    s.requests,
			Selections:  s.selections,
			Healthy:     s.healthy,
			StatusCodes: maps.Clone(s.statusCodes),
		}

		if len(s.responseTimes) > 0 {
			sorted := slices.Clone(s.responseTimes)
			slices.Sort(sorted)

			bm.AvgResponse = average(sorted)
			bm.P50Response = percentile(sorted, 0.50)
			bm.P95Response = percentile(sorted, 0.95)
			bm.P99Response = percentile(sorted, 0.99)
		}

		snap.Backends[backend] = bm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

// Package metrics collects request and health metrics off the request path.
//
// Producers send MetricEvent values on the collector's buffered channel with a
// non-blocking send; a single goroutine folds them into Metrics. Tracked:
//   - requests forwarded, selections and status codes per backend
//   - response time average and P50/P95/P99 per backend
//   - health transitions reported by the health monitor
//   - requests refused with 429 (rate limited) and 502 (no healthy backend)
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//	collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventRateLimited}
//	snap := collector.Snapshot()
//
// On shutdown the collector drains whatever is still buffered.
package metrics

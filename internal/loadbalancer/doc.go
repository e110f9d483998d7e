// Package loadbalancer composes the rate limiter, the round-robin selector
// and the health monitor behind a single GetServer entry point.
//
// GetServer consults the limiter first, then walks the latest health
// snapshot from the shared cursor. It never performs network I/O: probing
// happens only in the background monitor started by StartBackgroundTasks.
package loadbalancer

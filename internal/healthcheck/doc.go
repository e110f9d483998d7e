// Package healthcheck implements the active health monitor. A single
// background loop probes every backend concurrently once per interval and
// publishes the results as a whole-vector Snapshot that request handling
// reads without ever waiting on the network.
package healthcheck

// Package handler implements the proxy entry point. It identifies the
// client, asks the balancer for a backend, translates balancer errors into
// 429 and 502 responses and forwards admitted requests.
package handler

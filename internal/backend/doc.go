// Package backend holds the immutable backend registry. Each backend is
// identified by its position in the registry, which is also its index in the
// health snapshot, and carries the reverse proxy used to forward requests.
package backend

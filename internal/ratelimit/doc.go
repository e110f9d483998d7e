// Package ratelimit implements per-client fixed-window admission control.
//
// Each client gets its own window starting at its first request. Inside the
// window at most limit requests are admitted; the rest are rejected until the
// window ends. Expired records are replaced lazily on the next request and
// removed by a periodic sweep so idle clients do not accumulate.
package ratelimit

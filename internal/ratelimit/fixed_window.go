package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type clientRecord struct {
	count       int
	windowStart time.Time
}

// FixedWindow is safe for concurrent use.
type FixedWindow struct {
	mutex   sync.Mutex
	clients map[string]*clientRecord
	window  time.Duration
	limit   int
	now     func() time.Time
	logger  *slog.Logger
}

// NewFixedWindow admits up to limit requests per client per window. now may
// be nil, in which case time.Now is used.
func NewFixedWindow(window time.Duration, limit int, now func() time.Time, logger *slog.Logger) *FixedWindow {
	if now == nil {
		now = time.Now
	}

	return &FixedWindow{
		clients: make(map[string]*clientRecord),
		window:  window,
		limit:   limit,
		now:     now,
		logger:  logger.With(slog.String("component", "rate_limiter")),
	}
}

// Admit records a request from clientID and reports whether it may proceed.
func (l *FixedWindow) Admit(clientID string) bool {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	rec, ok := l.clients[clientID]
	if !ok || l.expired(rec, now) {
		l.clients[clientID] = &clientRecord{count: 1, windowStart: now}
		return true
	}

	// count stops one past the limit so a rejected client cannot overflow it.
	if rec.count <= l.limit {
		rec.count++
	}
	return rec.count <= l.limit
}

// Sweep deletes every expired record and returns how many were removed.
func (l *FixedWindow) Sweep() int {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	removed := 0
	for id, rec := range l.clients {
		if l.expired(rec, now) {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients, expired or not.
func (l *FixedWindow) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.clients)
}

// Run sweeps once per window until ctx is cancelled.
func (l *FixedWindow) Run(ctx context.Context) {
	l.logger.Info("Rate limit sweeper started",
		slog.Duration("window", l.window),
		slog.Int("limit", l.limit))
	defer l.logger.Info("Rate limit sweeper stopped")

	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				l.logger.Debug("Swept expired client windows", slog.Int("removed", removed))
			}
		}
	}
}

func (l *FixedWindow) expired(rec *clientRecord, now time.Time) bool {
	return now.Sub(rec.windowStart) >= l.window
}

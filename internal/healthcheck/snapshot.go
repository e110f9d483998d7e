package healthcheck

import "sync"

// Snapshot holds the latest up/down vector, one entry per backend. The
// vector is replaced as a whole and never modified after publication.
type Snapshot struct {
	mutex   sync.RWMutex
	healthy []bool
}

// NewSnapshot returns a snapshot of n entries all set to initial.
func NewSnapshot(n int, initial bool) *Snapshot {
	healthy := make([]bool, n)
	for i := range healthy {
		healthy[i] = initial
	}
	return &Snapshot{healthy: healthy}
}

// Load returns the current vector. The slice is shared and read-only.
func (s *Snapshot) Load() []bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.healthy
}

func (s *Snapshot) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.healthy)
}

// replace publishes a copy of next and returns the vector it superseded.
// A vector of the wrong length is dropped.
func (s *Snapshot) replace(next []bool) (prev []bool, ok bool) {
	published := make([]bool, len(next))
	copy(published, next)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(published) != len(s.healthy) {
		return s.healthy, false
	}
	prev = s.healthy
	s.healthy = published
	return prev, true
}

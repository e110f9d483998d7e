package strategy

import "sync"

// RoundRobin holds the shared cursor. The zero cursor means the first
// selection returns index 1.
type RoundRobin struct {
	mutex sync.Mutex
	next  int
}

func NewRoundRobinStrategy() *RoundRobin {
	return &RoundRobin{}
}

// Next advances the cursor until it lands on a healthy index, examining each
// index at most once. After a full unsuccessful pass the cursor is back where
// it started.
func (rr *RoundRobin) Next(healthy []bool) (int, bool) {
	n := len(healthy)
	if n == 0 {
		return -1, false
	}

	rr.mutex.Lock()
	defer rr.mutex.Unlock()

	// Keep the cursor in range if a shorter snapshot is passed.
	rr.next %= n

	for skips := 0; skips < n; skips++ {
		rr.next = (rr.next + 1) % n
		if healthy[rr.next] {
			return rr.next, true
		}
	}

	return -1, false
}

// Cursor returns the index of the last examined backend.
func (rr *RoundRobin) Cursor() int {
	rr.mutex.Lock()
	defer rr.mutex.Unlock()
	return rr.next
}

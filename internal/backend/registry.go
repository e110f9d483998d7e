package backend

import (
	"errors"
	"log/slog"
)

// ErrEmptyRegistry is returned when no backends are configured.
var ErrEmptyRegistry = errors.New("backend registry is empty")

// Address is the configured location of one backend.
type Address struct {
	Host string
	Port int
}

// Registry is the fixed, ordered backend pool.
type Registry struct {
	backends []*Backend
}

// NewRegistry builds one backend per address, indexed by position.
func NewRegistry(addrs []Address, logger *slog.Logger) (*Registry, error) {
	if len(addrs) == 0 {
		return nil, ErrEmptyRegistry
	}

	backends := make([]*Backend, 0, len(addrs))
	for i, a := range addrs {
		b, err := New(i, a.Host, a.Port, logger)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	return &Registry{backends: backends}, nil
}

func (r *Registry) Len() int {
	return len(r.backends)
}

// At returns the backend at index i.
func (r *Registry) At(i int) *Backend {
	return r.backends[i]
}

// All returns a copy of the backend list in registry order.
func (r *Registry) All() []*Backend {
	out := make([]*Backend, len(r.backends))
	copy(out, r.backends)
	return out
}

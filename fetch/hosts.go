package fetch

import (
	"context"
	"sync"
)

// hostLocks keeps at most one request in flight per host.
type hostLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newHostLocks() *hostLocks {
	return &hostLocks{slots: make(map[string]chan struct{})}
}

func (h *hostLocks) slot(host string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.slots[host]
	if !ok {
		s = make(chan struct{}, 1)
		h.slots[host] = s
	}
	return s
}

func (h *hostLocks) acquire(ctx context.Context, host string) (func(), error) {
	s := h.slot(host)
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

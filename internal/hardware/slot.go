package hardware

import (
	"context"
	"sync"
)

// fifoSlot is the exclusive operation slot of one facility. Waiters are
// granted ownership strictly in arrival order; a sync.Mutex alone cannot
// promise that, so the queue is explicit.
type fifoSlot struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// acquire blocks until the caller owns the slot or ctx expires. A caller
// that gives up is removed from the queue without disturbing the order of
// those behind it.
func (s *fifoSlot) acquire(ctx context.Context) error {
	s.mu.Lock()
	if !s.held {
		s.held = true
		s.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return ErrHardwareBusy
			}
		}
		s.mu.Unlock()
		// Ownership was handed over while the timeout fired; take it and
		// pass it straight on.
		<-ready
		s.release()
		return ErrHardwareBusy
	}
}

// release hands the slot to the oldest waiter, or frees it when the queue
// is empty. Ownership stays set across a handoff.
func (s *fifoSlot) release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		close(next)
		return
	}
	s.held = false
	s.mu.Unlock()
}

// Package timer provides the one-shot, millisecond-granularity callback
// service the SDO engine arms on every outgoing frame that expects a
// response. There is no third-party scheduling library in the reference
// stack for this concern (see DESIGN.md) so this wraps time.AfterFunc, the
// idiomatic stdlib primitive, behind a handle-based cancel API.
package timer

import (
	"sync"
	"time"
)

// Handle identifies an armed timer for later cancellation. The zero value
// means "no timer armed".
type Handle int64

// Service arms and cancels one-shot callbacks. Safe for concurrent use; the
// callback itself runs on its own goroutine (per time.AfterFunc semantics),
// so callers that need to rejoin a serialized dispatch loop must hop back
// onto it themselves.
type Service struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]*time.Timer
}

// NewService creates an empty timer service.
func NewService() *Service {
	return &Service{pending: make(map[Handle]*time.Timer)}
}

// Arm schedules fn to run once after ms milliseconds and returns a handle
// that can cancel it. ms == 0 fires as soon as possible.
func (s *Service) Arm(ms uint32, fn func()) Handle {
	s.mu.Lock()
	s.next++
	h := s.next
	s.mu.Unlock()

	t := time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		s.mu.Lock()
		_, stillPending := s.pending[h]
		delete(s.pending, h)
		s.mu.Unlock()
		if stillPending {
			fn()
		}
	})

	s.mu.Lock()
	s.pending[h] = t
	s.mu.Unlock()
	return h
}

// Cancel stops a previously armed timer. Canceling an unknown or already
// fired handle is a no-op.
func (s *Service) Cancel(h Handle) {
	if h == 0 {
		return
	}
	s.mu.Lock()
	t, ok := s.pending[h]
	delete(s.pending, h)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

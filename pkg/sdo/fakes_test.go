package sdo

import (
	"github.com/canopen-go/csdo/pkg/can"
	"github.com/canopen-go/csdo/pkg/timer"
)

// fakeCan records every frame sent through it.
type fakeCan struct {
	sent []can.Frame
}

func (f *fakeCan) Send(frame can.Frame) error {
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeCan) last() can.Frame {
	return f.sent[len(f.sent)-1]
}

// fakeTimer never fires on its own; tests call Fire explicitly to drive
// timeouts deterministically.
type fakeTimer struct {
	next    timer.Handle
	pending map[timer.Handle]func()
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{pending: make(map[timer.Handle]func())}
}

func (f *fakeTimer) Arm(ms uint32, fn func()) timer.Handle {
	f.next++
	f.pending[f.next] = fn
	return f.next
}

func (f *fakeTimer) Cancel(h timer.Handle) {
	delete(f.pending, h)
}

func (f *fakeTimer) Fire(h timer.Handle) {
	if fn, ok := f.pending[h]; ok {
		delete(f.pending, h)
		fn()
	}
}

// newTestSlot builds a ready-to-use ClientSlot bypassing Enable/dictionary
// lookups, wired to the given fakes.
func newTestSlot(canIf *fakeCan, timers *fakeTimer) *ClientSlot {
	e := NewEngine(canIf, nil, timers, 1, 1)
	e.slots[0].state = SlotIdle
	e.slots[0].rxID = 0x581
	e.slots[0].txID = 0x601
	return &e.slots[0]
}

func deliver(s *ClientSlot, data [8]byte) {
	s.pendingFrame = can.Frame{ID: s.rxID, DLC: 8, Data: data}
	s.Response()
}

package sdo

import (
	"github.com/canopen-go/csdo/pkg/can"
	"github.com/canopen-go/csdo/pkg/od"
	"github.com/canopen-go/csdo/pkg/timer"
	log "github.com/sirupsen/logrus"
)

// CanInterface is the CAN frame transport the engine sends on. Received
// frames are delivered to the engine by the integrator calling Check.
type CanInterface interface {
	Send(frame can.Frame) error
}

// Dictionary is the object dictionary lookup the engine uses at Enable
// time to read a slot's 0x1280+n configuration entry.
type Dictionary interface {
	Entry(index uint16) (*od.Entry, error)
}

// TimerService provides one-shot, cancelable, millisecond-granularity
// timers. Arm's fn may run on a different goroutine than the caller;
// the integrator is responsible for funneling it back into whatever
// goroutine serializes Check/Response/Timeout calls.
type TimerService interface {
	Arm(ms uint32, fn func()) timer.Handle
	Cancel(h timer.Handle)
}

// Engine owns a fixed-size array of client SDO slots for one local node.
type Engine struct {
	can    CanInterface
	dict   Dictionary
	timers TimerService
	nodeID uint8
	slots  []ClientSlot
}

// NewEngine allocates an Engine with n slots, all initially INVALID. Call
// Init to populate them from the dictionary.
func NewEngine(canIf CanInterface, dict Dictionary, timers TimerService, nodeID uint8, n int) *Engine {
	e := &Engine{
		can:    canIf,
		dict:   dict,
		timers: timers,
		nodeID: nodeID,
		slots:  make([]ClientSlot, n),
	}
	for i := range e.slots {
		e.slots[i].engine = e
		e.slots[i].n = i
	}
	return e
}

// Init enables every slot from its dictionary entry at 0x1280+n. Slots
// whose entry is missing or disabled remain INVALID; this is not an error.
func (e *Engine) Init() {
	for i := range e.slots {
		e.Enable(i)
	}
}

// Find returns the slot at index n if it has been successfully enabled,
// or nil if it is still INVALID.
func (e *Engine) Find(n int) *ClientSlot {
	if n < 0 || n >= len(e.slots) {
		return nil
	}
	slot := &e.slots[n]
	if slot.state == SlotInvalid {
		return nil
	}
	return slot
}

// Check scans slots for one whose rxID matches the frame and which is
// currently BUSY, attaches the frame, and returns it. Returns nil if no
// slot matches; the frame should then be ignored by the caller.
func (e *Engine) Check(frame can.Frame) *ClientSlot {
	id := frame.ID &^ DisabledBit
	for i := range e.slots {
		slot := &e.slots[i]
		if slot.state == SlotBusy && slot.rxID == id {
			slot.pendingFrame = frame
			return slot
		}
	}
	return nil
}

func (e *Engine) logf(slot *ClientSlot, format string, args ...interface{}) {
	log.Debugf("[CSDO][x%x]"+format, append([]interface{}{slot.n}, args...)...)
}

func (e *Engine) warnf(slot *ClientSlot, format string, args ...interface{}) {
	log.Warnf("[CSDO][x%x]"+format, append([]interface{}{slot.n}, args...)...)
}

// Package node glues an SDO client Engine to an object dictionary and a
// CAN transport for a single local node, the way BaseNode does for a
// full CANopen stack, trimmed to what a client-only SDO node needs.
package node

import (
	log "github.com/sirupsen/logrus"

	"github.com/canopen-go/csdo/pkg/can"
	"github.com/canopen-go/csdo/pkg/od"
	"github.com/canopen-go/csdo/pkg/sdo"
	"github.com/canopen-go/csdo/pkg/timer"
)

// Node owns an SDO client Engine, the object dictionary it was configured
// from, and the CAN transport both send and receive travel over.
type Node struct {
	engine   *sdo.Engine
	can      can.Interface
	od       *od.ObjectDictionary
	id       uint8
	numSlots int
}

// New builds a Node with n client slots, reading their COB-ID
// configuration from entries 0x1280..0x1280+n-1 of dict. Call Init to
// enable the slots and start listening for responses.
func New(canIf can.Interface, dict *od.ObjectDictionary, timers sdo.TimerService, nodeID uint8, n int) *Node {
	return &Node{
		engine:   sdo.NewEngine(canIf, dict, timers, nodeID, n),
		can:      canIf,
		od:       dict,
		id:       nodeID,
		numSlots: n,
	}
}

// NewWithTimerService is a convenience constructor that allocates a
// stdlib-backed timer.Service for the caller.
func NewWithTimerService(canIf can.Interface, dict *od.ObjectDictionary, nodeID uint8, n int) *Node {
	return New(canIf, dict, timer.NewService(), nodeID, n)
}

// Init enables every client slot and subscribes each to its configured
// response COB-ID. Slots whose dictionary entry is missing or disabled
// are silently skipped, matching Engine.Init.
func (n *Node) Init() error {
	n.engine.Init()
	for i := 0; i < n.numSlots; i++ {
		slot := n.engine.Find(i)
		if slot == nil {
			continue
		}
		if err := n.can.Subscribe(slot.RxID(), n); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements can.FrameListener: it routes an incoming frame to
// whichever slot's Check recognizes it and drives that slot's Response.
func (n *Node) Handle(frame can.Frame) {
	slot := n.engine.Check(frame)
	if slot == nil {
		log.Debugf("[CSDO] unrecognized frame id=x%x", frame.ID)
		return
	}
	slot.Response()
}

// Slot returns client slot i, or nil if it was never successfully enabled.
func (n *Node) Slot(i int) *sdo.ClientSlot {
	return n.engine.Find(i)
}

// ReadRaw performs a blocking upload on slot 0, the default client.
func (n *Node) ReadRaw(key sdo.Key, buf []byte, timeoutMs uint32) (int, error) {
	slot := n.Slot(0)
	if slot == nil {
		return 0, sdo.ErrSdoOff
	}
	return slot.ReadRaw(key, buf, timeoutMs)
}

// WriteRaw performs a blocking download on slot 0, the default client.
func (n *Node) WriteRaw(key sdo.Key, buf []byte, timeoutMs uint32) error {
	slot := n.Slot(0)
	if slot == nil {
		return sdo.ErrSdoOff
	}
	return slot.WriteRaw(key, buf, timeoutMs)
}

// ObjectDictionary returns the dictionary this node was configured from.
func (n *Node) ObjectDictionary() *od.ObjectDictionary {
	return n.od
}

// ID returns the local node-id.
func (n *Node) ID() uint8 {
	return n.id
}

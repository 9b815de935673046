// Package socketcan wires the engine's can.Interface to a real Linux
// SocketCAN device via brutella/can.
package socketcan

import (
	brutella "github.com/brutella/can"

	"github.com/canopen-go/csdo/pkg/can"
)

// Bus is a can.Interface backed by a SocketCAN network interface (e.g.
// "can0", "vcan0"). Only a single listener per CAN identifier is supported,
// which is all the SDO engine needs (one rx id per client slot).
type Bus struct {
	bus       *brutella.Bus
	listeners map[uint32]can.FrameListener
}

// New opens a SocketCAN bus on the named interface. The caller must call
// Connect before frames start flowing.
func New(name string) (*Bus, error) {
	bus, err := brutella.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	b := &Bus{bus: bus, listeners: make(map[uint32]can.FrameListener)}
	bus.Subscribe(b)
	return b, nil
}

// Connect starts the receive loop in the background.
func (b *Bus) Connect() error {
	go b.bus.ConnectAndPublish()
	return nil
}

// Disconnect tears down the underlying socket.
func (b *Bus) Disconnect() error {
	return b.bus.Disconnect()
}

// Send implements can.Interface.
func (b *Bus) Send(frame can.Frame) error {
	return b.bus.Publish(brutella.Frame{
		ID:     frame.ID,
		Length: frame.DLC,
		Data:   frame.Data,
	})
}

// Subscribe implements can.Interface. Only one listener may be registered
// per identifier; a second Subscribe for the same id replaces the first.
func (b *Bus) Subscribe(id uint32, listener can.FrameListener) error {
	b.listeners[id] = listener
	return nil
}

// Handle implements brutella/can's Handler interface, dispatching frames
// received from the socket to the listener registered for that identifier.
func (b *Bus) Handle(frame brutella.Frame) {
	listener, ok := b.listeners[frame.ID]
	if !ok {
		return
	}
	listener.Handle(can.Frame{ID: frame.ID, DLC: frame.Length, Data: frame.Data})
}

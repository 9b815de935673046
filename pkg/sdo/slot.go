package sdo

const configBaseIndex = 0x1280

// RxID returns the slot's resolved server->client COB-ID, the identifier
// an integrator should subscribe to on the CAN transport and route to
// Engine.Check.
func (s *ClientSlot) RxID() uint32 {
	return s.rxID
}

// State returns the slot's current lifecycle state.
func (s *ClientSlot) State() SlotState {
	return s.state
}

// Reset clears a slot back to its just-allocated state. If the slot is
// currently BUSY, it first performs a local abort with AbortDataTransfer
// (TOS_STATE) so the in-flight transfer's callback still fires exactly
// once. The slot returns to INVALID; callers enable it again with Enable
// or leave it to Engine.Init.
func (s *ClientSlot) Reset() {
	if s.state == SlotBusy {
		s.abortLocal(AbortDataTransfer)
	}
	s.state = SlotInvalid
}

// Enable reads the dictionary entry at 0x1280+n (sub 1: client->server
// COB-ID, sub 2: server->client COB-ID, sub 3: server node-id) and, if
// both COB-IDs have their disabled bit clear, moves the slot to IDLE.
// A missing or disabled entry leaves the slot INVALID silently: Find
// will simply never return it.
func (e *Engine) Enable(n int) {
	if n < 0 || n >= len(e.slots) {
		return
	}
	slot := &e.slots[n]
	slot.state = SlotInvalid

	entry, err := e.dict.Entry(uint16(configBaseIndex + n))
	if err != nil {
		return
	}
	txRaw, err := entry.Uint32(1)
	if err != nil {
		return
	}
	rxRaw, err := entry.Uint32(2)
	if err != nil {
		return
	}
	if txRaw&DisabledBit != 0 || rxRaw&DisabledBit != 0 {
		return
	}
	serverNodeID, err := entry.Uint8(3)
	if err != nil {
		return
	}

	slot.txID = txRaw + uint32(serverNodeID)
	slot.rxID = rxRaw + uint32(serverNodeID)
	slot.state = SlotIdle
	e.logf(slot, " enabled tx=x%x rx=x%x server=x%x", slot.txID, slot.rxID, serverNodeID)
}

// resetForTransfer clears the transfer context and cancels any armed
// timer. It does not touch state: callers set state themselves.
func (s *ClientSlot) resetForTransfer() {
	s.engine.timers.Cancel(s.transfer.timerHandle)
	s.engine.timers.Cancel(s.transfer.blockTimerHandle)
	s.transfer = TransferContext{timerHandle: 0, blockTimerHandle: 0}
}

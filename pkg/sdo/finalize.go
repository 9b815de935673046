package sdo

import "github.com/canopen-go/csdo/pkg/can"

// abortLocal records a locally-detected protocol error and finalizes.
// Only a timeout also transmits the standard CiA 301 abort frame to the
// peer; every other local abort reflects a protocol violation already
// on the wire (bad command, sequence, CRC, ...) and must not echo
// anything back. A peer-initiated abort never reaches here at all (see
// abortRemote).
func (s *ClientSlot) abortLocal(code AbortCode) {
	s.transfer.abortCode = code
	if code == AbortTimeout {
		s.sendAbortFrame(code)
	}
	s.engine.warnf(s, " local abort x%x:x%x %v", s.transfer.index, s.transfer.subindex, code)
	s.finalize()
}

// abortRemote records an abort code the peer sent and finalizes without
// transmitting anything back.
func (s *ClientSlot) abortRemote(code AbortCode) {
	s.transfer.abortCode = code
	s.engine.logf(s, " peer abort x%x:x%x %v", s.transfer.index, s.transfer.subindex, code)
	s.finalize()
}

func (s *ClientSlot) sendAbortFrame(code AbortCode) {
	var data [8]byte
	data[0] = cmdAbort
	writeIndexSub(&data, s.transfer.index, s.transfer.subindex)
	writeAbortCode(&data, code)
	frame := can.NewFrame(s.txID, 8)
	frame.Data = data
	if err := s.engine.can.Send(frame); err != nil {
		s.engine.warnf(s, " failed to send abort frame: %v", err)
	}
}

// finalize is the single funnel every transfer terminates through. It
// captures the caller's callback and arguments, clears the transfer
// context, returns the slot to IDLE, and only then invokes the
// callback — so the callback may start a new transfer on this slot
// without special-casing re-entrancy.
func (s *ClientSlot) finalize() {
	index := s.transfer.index
	subindex := s.transfer.subindex
	abortCode := s.transfer.abortCode
	callback := s.transfer.callback

	s.resetForTransfer()
	s.state = SlotIdle

	if callback != nil {
		callback(index, subindex, abortCode)
	}
}

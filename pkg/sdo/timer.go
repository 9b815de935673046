package sdo

// rearm cancels any timer currently armed for the transfer and arms a
// fresh one for timeoutMs, calling Timeout on expiry. Every outgoing
// frame that expects a response calls this so a silent peer is always
// caught.
func (s *ClientSlot) rearm() {
	s.engine.timers.Cancel(s.transfer.timerHandle)
	s.transfer.timerHandle = s.engine.timers.Arm(s.transfer.timeoutMs, func() {
		s.Timeout()
	})
}

// Timeout is invoked by the timer service when a slot's response window
// expires. It issues a local abort with AbortTimeout, which also sends
// the standard abort frame on the wire, and finalizes.
func (s *ClientSlot) Timeout() {
	if s.state != SlotBusy {
		return
	}
	s.abortLocal(AbortTimeout)
}

// rearmBlock arms the sub-block timer used while a block upload is
// waiting for the next raw data segment, distinct from the whole-transfer
// timer rearm keeps running. It falls back to timeoutMs when
// blockTimeoutMs is unset.
func (s *ClientSlot) rearmBlock() {
	s.engine.timers.Cancel(s.transfer.blockTimerHandle)
	d := s.transfer.blockTimeoutMs
	if d == 0 {
		d = s.transfer.timeoutMs
	}
	s.transfer.blockTimerHandle = s.engine.timers.Arm(d, func() {
		s.TimeoutBlock()
	})
}

// TimeoutBlock fires when a block upload's sub-block timer expires. This
// is a soft timeout: rather than aborting the whole transfer, it
// acknowledges whatever segments have arrived so far, same as if the
// sub-block had completed normally, and lets the peer resume or the main
// timer eventually catch a peer that's truly gone.
func (s *ClientSlot) TimeoutBlock() {
	if s.state != SlotBusy || s.transfer.kind != KindUploadBlock || s.transfer.block.awaitingEnd {
		return
	}
	s.sendUploadBlockAck()
}

package sdo

// handleUploadBlockResponse drives the block-upload side of the
// dispatcher: initiate response (with possible downgrade to segmented
// or expedited), raw sub-block data segments, and the end exchange.
func (s *ClientSlot) handleUploadBlockResponse(cmd uint8, data [8]byte) {
	switch {
	case !s.transfer.initDone:
		s.handleUploadBlockInit(cmd, data)
	case s.transfer.block.awaitingEnd:
		s.handleUploadBlockEnd(cmd, data)
	default:
		s.handleUploadBlockSegment(cmd, data)
	}
}

func (s *ClientSlot) handleUploadBlockInit(cmd uint8, data [8]byte) {
	idx, sub := readIndexSub(data)
	if idx != s.transfer.index || sub != s.transfer.subindex {
		s.abortLocal(AbortParamIncompat)
		return
	}

	// Block transfer supported: 0xC_ with bits 1 (s) and 2 (cc) free.
	if cmd&0xF9 == 0xC0 {
		s.transfer.block.crcEnabled = cmd&0x04 != 0
		if cmd&0x02 != 0 {
			size := readSize32(data)
			if size > uint32(len(s.transfer.buffer)) {
				s.abortLocal(AbortOutOfMem)
				return
			}
			s.transfer.size = size
		}
		s.transfer.block.crc = 0
		s.transfer.block.seqno = 0
		s.transfer.initDone = true

		var out [8]byte
		out[0] = 0xA3 // start upload: client confirms ready to receive segments
		s.sendFrame(out)
		s.rearm()
		s.rearmBlock()
		s.engine.logf(s, " TX block upload start x%x:x%x", s.transfer.index, s.transfer.subindex)
		return
	}

	// Server declined block mode: downgrade to expedited or segmented.
	if cmd&0xF0 == 0x40 {
		if cmd&0x02 != 0 {
			width := expeditedWidth(cmd)
			if int(width) > len(s.transfer.buffer) {
				s.abortLocal(AbortOutOfMem)
				return
			}
			copy(s.transfer.buffer, data[4:4+width])
			s.engine.logf(s, " RX block upload switching expedited x%x:x%x", s.transfer.index, s.transfer.subindex)
			s.finalize()
			return
		}
		if cmd&0x01 != 0 {
			size := readSize32(data)
			if size > uint32(len(s.transfer.buffer)) {
				s.abortLocal(AbortOutOfMem)
				return
			}
			s.transfer.size = size
		}
		s.transfer.kind = KindUploadSegmented
		s.transfer.toggle = 0
		s.transfer.initDone = true
		s.engine.logf(s, " RX block upload switching segmented x%x:x%x", s.transfer.index, s.transfer.subindex)
		s.sendNextUploadSegmentRequest()
		return
	}

	s.abortLocal(AbortCmd)
}

// handleUploadBlockSegment consumes one raw sub-block data segment (no
// ccs/scs framing: byte 0 is sequence number plus the last-segment bit).
// The final segment of the whole transfer is held back in pendingLast
// until the end frame discloses how many of its 7 bytes are valid.
func (s *ClientSlot) handleUploadBlockSegment(cmd uint8, data [8]byte) {
	bc := &s.transfer.block
	seq := seqNumber(cmd)
	last := blockLastBit(cmd)

	if seq != bc.seqno+1 || seq > bc.blockSize {
		s.engine.warnf(s, " unexpected sub-block seqno %d, expected %d", seq, bc.seqno+1)
		s.rearmBlock()
		return
	}
	bc.seqno = seq

	if last {
		copy(bc.pendingLast[:], data[1:8])
		bc.cBit = 1
	} else {
		if s.transfer.cursor+7 > uint32(len(s.transfer.buffer)) {
			s.abortLocal(AbortOutOfMem)
			return
		}
		copy(s.transfer.buffer[s.transfer.cursor:s.transfer.cursor+7], data[1:8])
		if bc.crcEnabled {
			bc.crc.Block(data[1:8])
		}
		s.transfer.cursor += 7
	}

	if last || seq == bc.blockSize {
		s.sendUploadBlockAck()
		return
	}
	s.rearmBlock()
}

func (s *ClientSlot) sendUploadBlockAck() {
	bc := &s.transfer.block
	var out [8]byte
	out[0] = 0xA2
	out[1] = bc.seqno
	out[2] = bc.blockSize
	s.sendFrame(out)

	if bc.cBit == 1 {
		bc.awaitingEnd = true
	} else {
		bc.seqno = 0
	}
	s.engine.timers.Cancel(s.transfer.blockTimerHandle)
	s.rearm()
	s.engine.logf(s, " TX block upload ack x%x:x%x seqno=%d", s.transfer.index, s.transfer.subindex, bc.seqno)
}

func (s *ClientSlot) handleUploadBlockEnd(cmd uint8, data [8]byte) {
	if cmd&0xE3 != 0xC1 {
		s.abortLocal(AbortCmd)
		return
	}
	bc := &s.transfer.block
	n := (cmd >> 2) & 0x07
	width := uint32(7 - n)
	if s.transfer.cursor+width > uint32(len(s.transfer.buffer)) {
		s.abortLocal(AbortOutOfMem)
		return
	}
	copy(s.transfer.buffer[s.transfer.cursor:s.transfer.cursor+width], bc.pendingLast[:width])
	s.transfer.cursor += width

	if bc.crcEnabled {
		bc.crc.Block(bc.pendingLast[:width])
		serverCRC := uint16(data[1]) | uint16(data[2])<<8
		if uint16(bc.crc) != serverCRC {
			s.abortLocal(AbortCRC)
			return
		}
	}

	var out [8]byte
	out[0] = 0xA1
	s.sendFrame(out)
	s.finalize()
}

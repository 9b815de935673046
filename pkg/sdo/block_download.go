package sdo

// handleDownloadBlockResponse drives the block-download side of the
// dispatcher through its three phases: initiate response, per-sub-block
// acknowledgement, and end response.
func (s *ClientSlot) handleDownloadBlockResponse(cmd uint8, data [8]byte) {
	switch {
	case !s.transfer.initDone:
		s.handleDownloadBlockInit(cmd, data)
	case s.transfer.block.awaitingEnd:
		s.handleDownloadBlockEnd(cmd)
	default:
		s.handleDownloadBlockAck(cmd, data)
	}
}

func (s *ClientSlot) handleDownloadBlockInit(cmd uint8, data [8]byte) {
	if cmd&0xFB != 0xA0 {
		s.abortLocal(AbortCmd)
		return
	}
	idx, sub := readIndexSub(data)
	if idx != s.transfer.index || sub != s.transfer.subindex {
		s.abortLocal(AbortParamIncompat)
		return
	}
	blockSize := data[4]
	if blockSize < 1 || blockSize > 127 {
		blockSize = 127
	}
	s.transfer.block.blockSize = blockSize
	s.transfer.initDone = true
	s.sendDownloadSubblock()
}

// sendDownloadSubblock emits up to blockSize consecutive data segments
// in one go (no suspension point between them) and rearms the timer
// once for the whole sub-block's acknowledgement.
func (s *ClientSlot) sendDownloadSubblock() {
	bc := &s.transfer.block
	bc.blockOffset = s.transfer.cursor

	for seq := uint8(1); seq <= bc.blockSize; seq++ {
		remaining := s.transfer.size - s.transfer.cursor
		width := remaining
		if width > 7 {
			width = 7
		}
		last := s.transfer.cursor+width >= s.transfer.size

		var out [8]byte
		out[0] = makeBlockSegmentCmd(seq, last)
		copy(out[1:1+width], s.transfer.buffer[s.transfer.cursor:s.transfer.cursor+width])

		s.transfer.cursor += width
		bc.seqno = seq
		bc.lastSegDataBytes = uint8(width)
		bc.cBit = 0
		if last {
			bc.cBit = 1
		}

		s.sendFrame(out)
		if last {
			break
		}
	}
	s.rearm()
	s.engine.logf(s, " TX block download sub-block x%x:x%x seqno=%d", s.transfer.index, s.transfer.subindex, s.transfer.block.seqno)
}

func (s *ClientSlot) handleDownloadBlockAck(cmd uint8, data [8]byte) {
	if cmd != 0xA2 {
		s.abortLocal(AbortCmd)
		return
	}
	ackseq := data[1]
	newBlockSize := data[2]
	if ackseq > s.transfer.block.seqno {
		s.abortLocal(AbortSeqNum)
		return
	}
	s.transfer.cursor = s.transfer.block.blockOffset + uint32(ackseq)*7
	if s.transfer.cursor > s.transfer.size {
		s.transfer.cursor = s.transfer.size
	}

	if s.transfer.cursor >= s.transfer.size {
		s.sendDownloadBlockEnd()
		return
	}
	if newBlockSize < 1 || newBlockSize > 127 {
		newBlockSize = 127
	}
	s.transfer.block.blockSize = newBlockSize
	s.sendDownloadSubblock()
}

func (s *ClientSlot) sendDownloadBlockEnd() {
	var data [8]byte
	n := 7 - s.transfer.block.lastSegDataBytes
	data[0] = 0xC1 | (n << 2)
	if s.transfer.block.crcEnabled {
		crcVal := uint16(s.transfer.block.crc)
		data[1] = byte(crcVal)
		data[2] = byte(crcVal >> 8)
	}
	s.transfer.block.awaitingEnd = true
	s.sendFrame(data)
	s.rearm()
	s.engine.logf(s, " TX block download end x%x:x%x n=%d", s.transfer.index, s.transfer.subindex, n)
}

func (s *ClientSlot) handleDownloadBlockEnd(cmd uint8) {
	if cmd != 0xA1 {
		s.abortLocal(AbortCmd)
		return
	}
	s.finalize()
}

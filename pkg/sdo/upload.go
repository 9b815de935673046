package sdo

// sendNextUploadSegmentRequest emits the next upload segment request,
// alternating CCS between upload-segment plain and toggled form.
func (s *ClientSlot) sendNextUploadSegmentRequest() {
	var data [8]byte
	data[0] = ccsUploadSegment | (s.transfer.toggle << 4)
	s.sendFrame(data)
	s.rearm()
	s.engine.logf(s, " TX upload segment request x%x:x%x toggle=%d", s.transfer.index, s.transfer.subindex, s.transfer.toggle)
}

// handleUploadResponse covers the ambiguous window after an upload
// request: the client does not know in advance whether the server will
// answer with an expedited reply or a segmented init response, so both
// are handled here before the state commits to KindUploadSegmented
// proper.
func (s *ClientSlot) handleUploadResponse(cmd uint8, data [8]byte) {
	if !s.transfer.initDone {
		s.handleUploadInit(cmd, data)
		return
	}

	if ccs(cmd) != scsUploadSegment {
		s.abortLocal(AbortCmd)
		return
	}
	if toggleBit(cmd) != s.transfer.toggle {
		s.abortLocal(AbortToggleBit)
		return
	}
	unused := segmentedUnusedBytes(cmd)
	width := 7 - unused
	if s.transfer.cursor+uint32(width) > uint32(len(s.transfer.buffer)) {
		s.abortLocal(AbortOutOfMem)
		return
	}
	copy(s.transfer.buffer[s.transfer.cursor:], data[1:1+width])
	s.transfer.cursor += uint32(width)
	s.transfer.toggle ^= 1

	if continuationBit(cmd) == 1 {
		s.finalize()
		return
	}
	s.sendNextUploadSegmentRequest()
}

// handleUploadInit decodes the initiate-upload response. Bit 1 (e) of
// byte 0 selects expedited; bit 0 (s) indicates the size/n field is
// valid. Both bits are only meaningful once the command's top nibble
// reads 0x4_.
func (s *ClientSlot) handleUploadInit(cmd uint8, data [8]byte) {
	if cmd&0xF0 != 0x40 {
		s.abortLocal(AbortCmd)
		return
	}
	idx, sub := readIndexSub(data)
	if idx != s.transfer.index || sub != s.transfer.subindex {
		s.abortLocal(AbortParamIncompat)
		return
	}

	if cmd&0x02 != 0 {
		width := expeditedWidth(cmd)
		if int(width) > len(s.transfer.buffer) {
			s.abortLocal(AbortOutOfMem)
			return
		}
		copy(s.transfer.buffer, data[4:4+width])
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
	s.transfer.initDone = true
	s.sendNextUploadSegmentRequest()
}

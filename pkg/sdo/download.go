package sdo

// sendDownloadExpeditedInit emits the single frame that both initiates
// and carries the data for an expedited download: CCS=init-download,
// e=1, s=1, n = 4 - size in bits 2-3, size bytes of payload in bytes
// 4..4+size.
func (s *ClientSlot) sendDownloadExpeditedInit() {
	var data [8]byte
	size := len(s.transfer.buffer)
	data[0] = ccsInitDownload | 0x02 | (uint8(4-size) << 2) // e=1 s=1
	writeIndexSub(&data, s.transfer.index, s.transfer.subindex)
	copy(data[4:4+size], s.transfer.buffer)
	s.sendFrame(data)
	s.engine.logf(s, " TX download expedited x%x:x%x %v", s.transfer.index, s.transfer.subindex, data)
}

// sendDownloadSegmentedInit emits the initiate-download request with
// s=1 (size indicated) and no data; the actual bytes follow as segments
// once the server acknowledges.
func (s *ClientSlot) sendDownloadSegmentedInit() {
	var data [8]byte
	data[0] = ccsInitDownload | 0x01 // s=1
	writeIndexSub(&data, s.transfer.index, s.transfer.subindex)
	writeSize32(&data, s.transfer.size)
	s.sendFrame(data)
	s.engine.logf(s, " TX download segmented init x%x:x%x size=%d", s.transfer.index, s.transfer.subindex, s.transfer.size)
}

func (s *ClientSlot) handleDownloadResponse(cmd uint8, data [8]byte) {
	switch s.transfer.kind {
	case KindDownloadExpedited:
		if cmd != scsInitDownload {
			s.abortLocal(AbortCmd)
			return
		}
		s.finalize()

	case KindDownloadSegmented:
		if s.transfer.cursor == 0 {
			if cmd != scsInitDownload {
				s.abortLocal(AbortCmd)
				return
			}
			s.sendNextDownloadSegment()
			return
		}
		if ccs(cmd) != scsDownloadSegment {
			s.abortLocal(AbortCmd)
			return
		}
		if toggleBit(cmd) != s.transfer.toggle {
			s.abortLocal(AbortToggleBit)
			return
		}
		s.transfer.toggle ^= 1
		if s.transfer.cursor >= s.transfer.size {
			s.finalize()
			return
		}
		s.sendNextDownloadSegment()
	}
}

// sendNextDownloadSegment emits the next segment of a download with the
// current toggle bit. The toggle is flipped by handleDownloadResponse
// once the server's acknowledgement of this segment is accepted.
func (s *ClientSlot) sendNextDownloadSegment() {
	remaining := s.transfer.size - s.transfer.cursor
	width := remaining
	if width > 7 {
		width = 7
	}
	continuation := uint8(0)
	if s.transfer.cursor+width >= s.transfer.size {
		continuation = 1
	}

	var out [8]byte
	out[0] = makeSegmentCmd(s.transfer.toggle, uint8(7-width), continuation)
	copy(out[1:1+width], s.transfer.buffer[s.transfer.cursor:s.transfer.cursor+width])

	s.transfer.cursor += width

	s.sendFrame(out)
	s.rearm()
	s.engine.logf(s, " TX download segment x%x:x%x %v", s.transfer.index, s.transfer.subindex, out)
}

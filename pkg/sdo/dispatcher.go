package sdo

// Response processes the frame Engine.Check most recently bound to this
// slot. It must only be called on a slot Check just returned.
func (s *ClientSlot) Response() {
	data := s.pendingFrame.Data
	cmd := data[0]

	if cmd == cmdAbort {
		idx, sub := readIndexSub(data)
		if idx != s.transfer.index || sub != s.transfer.subindex {
			s.engine.warnf(s, " ignoring abort for mismatched x%x:x%x", idx, sub)
			return
		}
		s.abortRemote(readAbortCode(data))
		return
	}

	switch s.transfer.kind {
	case KindUploadSegmented, KindUploadExpedited:
		s.handleUploadResponse(cmd, data)
	case KindDownloadSegmented, KindDownloadExpedited:
		s.handleDownloadResponse(cmd, data)
	case KindUploadBlock:
		s.handleUploadBlockResponse(cmd, data)
	case KindDownloadBlock:
		s.handleDownloadBlockResponse(cmd, data)
	default:
		s.engine.warnf(s, " response with no transfer in flight, cmd=x%x", cmd)
	}
}

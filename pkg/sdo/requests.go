package sdo

import "github.com/canopen-go/csdo/pkg/can"

func (s *ClientSlot) validateRequest(key Key, buf []byte, cb Callback, timeoutMs uint32) error {
	if cb == nil || timeoutMs == 0 {
		return ErrIllegalArgument
	}
	if buf == nil || len(buf) == 0 {
		return ErrIllegalArgument
	}
	_ = key
	if s.state == SlotInvalid {
		return ErrSdoOff
	}
	if s.state == SlotBusy {
		return ErrSdoBusy
	}
	return nil
}

func (s *ClientSlot) beginTransfer(kind TransferKind, key Key, buf []byte, cb Callback, timeoutMs uint32) {
	s.transfer = TransferContext{
		kind:      kind,
		index:     key.Index,
		subindex:  key.Subindex,
		buffer:    buf,
		timeoutMs: timeoutMs,
		callback:  cb,
	}
	s.state = SlotBusy
}

// RequestUpload starts an upload (object read). buf bounds the maximum
// number of bytes the client will accept; the server decides whether the
// transfer is expedited or segmented. Returns ErrSdoOff if the slot was
// never enabled, ErrSdoBusy if a transfer is already in flight.
func (s *ClientSlot) RequestUpload(key Key, buf []byte, cb Callback, timeoutMs uint32) error {
	if err := s.validateRequest(key, buf, cb, timeoutMs); err != nil {
		return err
	}
	s.beginTransfer(KindUploadSegmented, key, buf, cb, timeoutMs)
	s.transfer.size = uint32(len(buf))

	var data [8]byte
	data[0] = ccsInitUpload
	writeIndexSub(&data, key.Index, key.Subindex)
	s.sendFrame(data)
	s.rearm()
	s.engine.logf(s, " TX upload init x%x:x%x", key.Index, key.Subindex)
	return nil
}

// RequestUploadBlock starts a block upload. crcEnabled offers CRC
// generation to the server; blksize (1..127) is the client's proposed
// sub-block length; pst is the protocol switch threshold the client
// declares (server may fall back to segmented/expedited for small
// objects). blockTimeoutMs bounds the wait for each raw segment within a
// sub-block; 0 falls back to timeoutMs.
func (s *ClientSlot) RequestUploadBlock(key Key, buf []byte, cb Callback, timeoutMs uint32, crcEnabled bool, blksize uint8, pst uint8, blockTimeoutMs uint32) error {
	if err := s.validateRequest(key, buf, cb, timeoutMs); err != nil {
		return err
	}
	if blksize < 1 || blksize > 127 {
		return ErrIllegalArgument
	}
	s.beginTransfer(KindUploadBlock, key, buf, cb, timeoutMs)
	s.transfer.size = uint32(len(buf))
	s.transfer.blockTimeoutMs = blockTimeoutMs
	s.transfer.block.crcEnabled = crcEnabled
	s.transfer.block.blockSize = blksize
	s.transfer.block.pst = pst

	var data [8]byte
	data[0] = ccsBlockUpload | 0x00 // CS=0: initiate upload request
	if crcEnabled {
		data[0] |= 0x04 // cc bit: client supports CRC
	}
	writeIndexSub(&data, key.Index, key.Subindex)
	data[4] = blksize
	data[5] = pst
	s.sendFrame(data)
	s.rearm()
	s.engine.logf(s, " TX block upload init x%x:x%x blksize=%d", key.Index, key.Subindex, blksize)
	return nil
}

// RequestDownload starts a download (object write). Buf holds the exact
// bytes to send; size <= 4 uses expedited transfer, larger uses
// segmented.
func (s *ClientSlot) RequestDownload(key Key, buf []byte, cb Callback, timeoutMs uint32) error {
	if err := s.validateRequest(key, buf, cb, timeoutMs); err != nil {
		return err
	}
	size := uint32(len(buf))
	if size <= 4 {
		s.beginTransfer(KindDownloadExpedited, key, buf, cb, timeoutMs)
		s.transfer.size = size
		s.sendDownloadExpeditedInit()
	} else {
		s.beginTransfer(KindDownloadSegmented, key, buf, cb, timeoutMs)
		s.transfer.size = size
		s.sendDownloadSegmentedInit()
	}
	s.rearm()
	return nil
}

// RequestDownloadBlock starts a block download. crcEnabled offers CRC
// verification at the end of the transfer. pst is stored with the
// transfer but not sent: bytes 4-7 of the init frame carry the size.
func (s *ClientSlot) RequestDownloadBlock(key Key, buf []byte, cb Callback, timeoutMs uint32, crcEnabled bool, pst uint8) error {
	if err := s.validateRequest(key, buf, cb, timeoutMs); err != nil {
		return err
	}
	s.beginTransfer(KindDownloadBlock, key, buf, cb, timeoutMs)
	s.transfer.size = uint32(len(buf))
	s.transfer.block.crcEnabled = crcEnabled
	s.transfer.block.pst = pst
	if crcEnabled {
		s.transfer.block.crc = 0
		s.transfer.block.crc.Block(buf)
	}

	var data [8]byte
	data[0] = ccsBlockDownload | 0x02 // s=1: size indicated
	if crcEnabled {
		data[0] |= 0x04 // cc bit
	}
	writeIndexSub(&data, key.Index, key.Subindex)
	writeSize32(&data, s.transfer.size)
	s.sendFrame(data)
	s.rearm()
	s.engine.logf(s, " TX block download init x%x:x%x size=%d", key.Index, key.Subindex, s.transfer.size)
	return nil
}

func (s *ClientSlot) sendFrame(data [8]byte) {
	frame := can.NewFrame(s.txID, 8)
	frame.Data = data
	if err := s.engine.can.Send(frame); err != nil {
		s.engine.warnf(s, " send failed: %v", err)
	}
}

package sdo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopen-go/csdo/internal/crc"
)

// TestExpeditedUpload covers a single-frame read of a 4-byte object.
func TestExpeditedUpload(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 4)
	var gotAbort AbortCode = 0xFFFFFFFF
	done := false
	err := s.RequestUpload(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000)
	require.NoError(t, err)
	require.Len(t, canIf.sent, 1)
	assert.EqualValues(t, ccsInitUpload, canIf.sent[0].Data[0])

	deliver(s, [8]byte{0x43, 0x18, 0x10, 0x01, 0x78, 0x56, 0x34, 0x12})

	require.True(t, done)
	assert.Zero(t, gotAbort)
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, buf)
	assert.Equal(t, SlotIdle, s.state)
}

// TestSegmentedDownload covers a 10-byte write spanning two segments.
func TestSegmentedDownload(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	done := false
	var gotAbort AbortCode
	err := s.RequestDownload(Key{0x2000, 0}, payload, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000)
	require.NoError(t, err)

	// init ack from server
	deliver(s, [8]byte{0x60, 0x00, 0x20, 0x00})
	require.Len(t, canIf.sent, 2)
	first := canIf.sent[1].Data
	assert.EqualValues(t, 0x00, first[0]&0x01) // c=0: more segments follow
	assert.Equal(t, payload[0:7], first[1:8])

	// ack first segment
	deliver(s, [8]byte{0x20})
	require.Len(t, canIf.sent, 3)
	second := canIf.sent[2].Data
	assert.EqualValues(t, 1, toggleBit(second[0]))
	assert.EqualValues(t, 1, continuationBit(second[0])) // c=1: no more segments follow
	assert.Equal(t, payload[7:10], second[1:4])

	// ack final segment, toggled
	deliver(s, [8]byte{0x30})
	require.True(t, done)
	assert.Zero(t, gotAbort)
	assert.Equal(t, SlotIdle, s.state)
}

// TestBlockDownload covers a 50-byte write with block size 7, exercising
// more than one sub-block and the CRC-bearing end exchange.
func TestBlockDownload(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	payload := make([]byte, 50)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	done := false
	var gotAbort AbortCode = 0xFFFFFFFF
	err := s.RequestDownloadBlock(Key{0x2001, 0}, payload, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000, true, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, canIf.sent[0].Data[5])

	// server accepts block download, proposes blksize 7
	deliver(s, [8]byte{0xA0, 0x01, 0x20, 0x00, 7})
	require.Equal(t, KindDownloadBlock, s.transfer.kind)

	// first sub-block is 7 segments of 7 bytes = 49 of 50 bytes, not yet last
	require.Len(t, canIf.sent, 1+7)
	lastSeg := canIf.sent[len(canIf.sent)-1].Data
	assert.EqualValues(t, 7, seqNumber(lastSeg[0]))
	assert.False(t, blockLastBit(lastSeg[0]))

	sent := len(canIf.sent)
	// ack the whole sub-block
	deliver(s, [8]byte{0xA2, 7, 7})
	// second sub-block: only 1 remaining byte, a single last segment
	require.Equal(t, sent+1, len(canIf.sent))
	finalSeg := canIf.sent[len(canIf.sent)-1].Data
	assert.EqualValues(t, 1, seqNumber(finalSeg[0]))
	assert.True(t, blockLastBit(finalSeg[0]))

	sent = len(canIf.sent)
	// ack final sub-block: end frame should follow
	deliver(s, [8]byte{0xA2, 1, 7})
	require.Equal(t, sent+1, len(canIf.sent))
	endFrame := canIf.sent[len(canIf.sent)-1].Data
	assert.EqualValues(t, 0xC0, endFrame[0]&0xC0) // top bits mark a block-download control frame
	assert.EqualValues(t, 1, endFrame[0]&0x03)    // end-transfer cs
	assert.True(t, s.transfer.block.awaitingEnd)

	var want crc.CRC16
	want.Block(payload)
	assert.EqualValues(t, byte(want), endFrame[1])
	assert.EqualValues(t, byte(want>>8), endFrame[2])

	// server confirms end
	deliver(s, [8]byte{0xA1})
	require.True(t, done)
	assert.Zero(t, gotAbort)
	assert.Equal(t, SlotIdle, s.state)
}

// TestTimeoutDuringSegmentedUpload verifies a silent peer is caught by
// the armed timer and aborts with AbortTimeout.
func TestTimeoutDuringSegmentedUpload(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 20)
	var gotAbort AbortCode
	done := false
	err := s.RequestUpload(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 500)
	require.NoError(t, err)

	handle := s.transfer.timerHandle
	timers.Fire(handle)

	require.True(t, done)
	assert.Equal(t, AbortTimeout, gotAbort)
	assert.Equal(t, SlotIdle, s.state)
	// abort frame was sent on the wire
	last := canIf.last()
	assert.EqualValues(t, cmdAbort, last.Data[0])
}

// TestPeerAbortMidTransfer verifies a server-sent abort frame terminates
// the transfer without the client re-sending an abort of its own.
func TestPeerAbortMidTransfer(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 20)
	var gotAbort AbortCode
	done := false
	err := s.RequestUpload(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000)
	require.NoError(t, err)

	sentBefore := len(canIf.sent)
	var abortData [8]byte
	abortData[0] = cmdAbort
	writeIndexSub(&abortData, 0x1018, 1)
	writeAbortCode(&abortData, AbortDataDeviceState)
	deliver(s, abortData)

	require.True(t, done)
	assert.Equal(t, AbortDataDeviceState, gotAbort)
	assert.Equal(t, sentBefore, len(canIf.sent)) // no echo abort sent back
	assert.Equal(t, SlotIdle, s.state)
}

// TestBlockUploadProtocolSwitch covers a server that does not support
// block transfer and downgrades the request to a plain segmented upload.
func TestBlockUploadProtocolSwitch(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 20)
	done := false
	var gotAbort AbortCode = 0xFFFFFFFF
	err := s.RequestUploadBlock(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000, true, 10, 0, 0)
	require.NoError(t, err)

	// server responds with plain init-upload (0x41: s-bit set, size 14) instead of block
	var resp [8]byte
	resp[0] = 0x41
	writeIndexSub(&resp, 0x1018, 1)
	writeSize32(&resp, 14)
	deliver(s, resp)

	require.Equal(t, KindUploadSegmented, s.transfer.kind)
	require.Len(t, canIf.sent, 2) // block init + first segment request

	// drive the segmented transfer to completion: two 7-byte segments
	deliver(s, [8]byte{0x00, 1, 2, 3, 4, 5, 6, 7})
	deliver(s, [8]byte{0x11, 8, 9, 10, 11, 12, 13, 14})

	require.True(t, done)
	assert.Zero(t, gotAbort)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, buf[:14])
}

// TestCallbackInvokedExactlyOnce guards against double-fire on abort paths.
func TestCallbackInvokedExactlyOnce(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 4)
	calls := 0
	err := s.RequestUpload(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		calls++
	}, 1000)
	require.NoError(t, err)

	deliver(s, [8]byte{0x43, 0x18, 0x10, 0x01, 0x78, 0x56, 0x34, 0x12})
	assert.Equal(t, 1, calls)

	// a stray late frame after completion must not be routed (slot idle, no transfer)
	deliver(s, [8]byte{0x43, 0x18, 0x10, 0x01, 0, 0, 0, 0})
	assert.Equal(t, 1, calls)
}

// TestBlockSizeBoundaries exercises blksize extremes accepted by
// RequestUploadBlock.
func TestBlockSizeBoundaries(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()

	s := newTestSlot(canIf, timers)
	buf := make([]byte, 4)
	err := s.RequestUploadBlock(Key{0x1018, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000, false, 1, 0, 0)
	assert.NoError(t, err)

	s2 := newTestSlot(&fakeCan{}, newFakeTimer())
	err = s2.RequestUploadBlock(Key{0x1018, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000, false, 127, 0, 0)
	assert.NoError(t, err)

	s3 := newTestSlot(&fakeCan{}, newFakeTimer())
	err = s3.RequestUploadBlock(Key{0x1018, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000, false, 128, 0, 0)
	assert.ErrorIs(t, err, ErrIllegalArgument)

	s4 := newTestSlot(&fakeCan{}, newFakeTimer())
	err = s4.RequestUploadBlock(Key{0x1018, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000, false, 0, 0, 0)
	assert.ErrorIs(t, err, ErrIllegalArgument)
}

// TestBlockUploadSubBlockTimeout verifies a peer that stalls mid sub-block
// gets acknowledged for whatever arrived rather than aborting the whole
// transfer, and that the main transfer timer still aborts on expiry.
func TestBlockUploadSubBlockTimeout(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 21)
	done := false
	var gotAbort AbortCode = 0xFFFFFFFF
	err := s.RequestUploadBlock(Key{0x1018, 1}, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done = true
		gotAbort = abortCode
	}, 1000, false, 3, 0, 200)
	require.NoError(t, err)

	// server accepts block mode, blksize irrelevant here (client proposed 3)
	var accept [8]byte
	accept[0] = 0xC0
	writeIndexSub(&accept, 0x1018, 1)
	deliver(s, accept)
	require.True(t, s.transfer.initDone)

	// only one of the three sub-block segments arrives, then the peer stalls
	deliver(s, [8]byte{0x01, 1, 2, 3, 4, 5, 6, 7})
	blockHandle := s.transfer.blockTimerHandle
	require.NotZero(t, blockHandle)
	sentBefore := len(canIf.sent)

	// sub-block timer fires: client should ack what it has (seqno=1) rather than abort
	timers.Fire(blockHandle)

	assert.False(t, done)
	require.Equal(t, sentBefore+1, len(canIf.sent))
	ack := canIf.last().Data
	assert.EqualValues(t, 0xA2, ack[0])
	assert.EqualValues(t, 1, ack[1])
	assert.Equal(t, SlotBusy, s.state)

	// the main transfer timer (re-armed by the ack) is still armed: firing it aborts normally
	timers.Fire(s.transfer.timerHandle)
	require.True(t, done)
	assert.Equal(t, AbortTimeout, gotAbort)
}

// TestBusySlotRejectsConcurrentRequest checks the slot-busy guard.
func TestBusySlotRejectsConcurrentRequest(t *testing.T) {
	canIf := &fakeCan{}
	timers := newFakeTimer()
	s := newTestSlot(canIf, timers)

	buf := make([]byte, 4)
	require.NoError(t, s.RequestUpload(Key{0x1018, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000))
	err := s.RequestUpload(Key{0x1019, 1}, buf, func(uint16, uint8, AbortCode) {}, 1000)
	assert.ErrorIs(t, err, ErrSdoBusy)
}

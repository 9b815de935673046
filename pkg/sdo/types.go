package sdo

import (
	"github.com/canopen-go/csdo/internal/crc"
	"github.com/canopen-go/csdo/pkg/can"
	"github.com/canopen-go/csdo/pkg/timer"
)

// DisabledBit marks a client-configured COB-ID as disabled per CiA 301.
const DisabledBit uint32 = 0x80000000

// TransferKind is the sum type over the sub-protocols a slot can be
// carrying. Only one is ever live in a TransferContext at a time.
type TransferKind uint8

const (
	KindNone TransferKind = iota
	KindUploadExpedited
	KindUploadSegmented
	KindDownloadExpedited
	KindDownloadSegmented
	KindUploadBlock
	KindDownloadBlock
)

func (k TransferKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUploadExpedited:
		return "upload-expedited"
	case KindUploadSegmented:
		return "upload-segmented"
	case KindDownloadExpedited:
		return "download-expedited"
	case KindDownloadSegmented:
		return "download-segmented"
	case KindUploadBlock:
		return "upload-block"
	case KindDownloadBlock:
		return "download-block"
	default:
		return "unknown"
	}
}

// SlotState is a ClientSlot's lifecycle state.
type SlotState uint8

const (
	SlotInvalid SlotState = iota // not configured: dictionary entries missing or disabled
	SlotIdle                     // configured, no transfer in flight
	SlotBusy                     // transfer in flight
)

// Key addresses one object dictionary entry: index and sub-index.
type Key struct {
	Index    uint16
	Subindex uint8
}

// BlockContext holds the state meaningful only while a transfer is in
// block mode. It is embedded in TransferContext and left zeroed for
// non-block transfers.
type BlockContext struct {
	blockSize        uint8 // sub-block length in segments, 1..127
	blockOffset      uint32
	lastSegDataBytes uint8 // 1..7, data bytes in the final segment
	cBit             uint8 // 1 on the last segment of the whole transfer
	crcEnabled       bool
	crc              crc.CRC16
	pst              uint8
	seqno            uint8 // last sequence number sent/expected in the current sub-block
	awaitingEnd      bool  // in the end phase of a block transfer, direction-agnostic
	pendingLast      [7]byte
}

// TransferContext is the per-transfer scratch a busy ClientSlot owns. It
// is reset to its zero value by finalize.
type TransferContext struct {
	kind        TransferKind
	index       uint16
	subindex    uint8
	buffer      []byte // caller-owned for the duration of the transfer
	size        uint32 // expected total size, known or upper bound
	cursor      uint32
	toggle      uint8
	timeoutMs   uint32
	timerHandle timer.Handle
	// blockTimeoutMs bounds the wait for each raw segment within a
	// block-upload sub-block. It runs alongside timeoutMs rather than
	// replacing it: the main timer still catches a peer gone silent for
	// good, while this one lets the client recover partial sub-blocks
	// from a peer that merely stalls mid sub-block. Zero falls back to
	// timeoutMs. Unused outside block upload.
	blockTimeoutMs   uint32
	blockTimerHandle timer.Handle
	callback         Callback
	abortCode        AbortCode
	block            BlockContext
	initDone         bool // segmented/block handshake accepted, past the ambiguous init window
}

// Callback is invoked exactly once when a transfer terminates, whatever
// the outcome. abortCode is zero on success.
type Callback func(index uint16, subindex uint8, abortCode AbortCode)

// ClientSlot is one independent SDO client protocol instance.
type ClientSlot struct {
	rxID, txID uint32 // resolved COB-IDs, DisabledBit clear
	state      SlotState
	transfer   TransferContext
	engine     *Engine // back-reference, non-owning
	n          int     // slot index, used for logging and dictionary lookups

	pendingFrame can.Frame // set by Engine.Check, consumed by Response
}

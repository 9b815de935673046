package sdo

import (
	"encoding/binary"
	"fmt"
)

// ReadRaw performs a blocking upload of up to len(buf) bytes. On success
// it returns len(buf); the number of bytes the server actually sent is
// not reported, and bytes of buf beyond the server's data keep their
// previous contents. It must be called from
// a goroutine other than the one driving Check/Response/Timeout, since
// it blocks on the same completion callback those dispatch through.
func (s *ClientSlot) ReadRaw(key Key, buf []byte, timeoutMs uint32) (int, error) {
	done := make(chan AbortCode, 1)
	err := s.RequestUpload(key, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done <- abortCode
	}, timeoutMs)
	if err != nil {
		return 0, err
	}
	if code := <-done; code != 0 {
		return 0, code
	}
	return len(buf), nil
}

// WriteRaw performs a blocking download of buf. It must be called from
// a goroutine other than the one driving Check/Response/Timeout.
func (s *ClientSlot) WriteRaw(key Key, buf []byte, timeoutMs uint32) error {
	done := make(chan AbortCode, 1)
	err := s.RequestDownload(key, buf, func(index uint16, subindex uint8, abortCode AbortCode) {
		done <- abortCode
	}, timeoutMs)
	if err != nil {
		return err
	}
	if code := <-done; code != 0 {
		return code
	}
	return nil
}

// ReadUint8 reads a single byte scalar object.
func (s *ClientSlot) ReadUint8(key Key, timeoutMs uint32) (uint8, error) {
	buf := make([]byte, 1)
	if _, err := s.ReadRaw(key, buf, timeoutMs); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian 16-bit scalar object.
func (s *ClientSlot) ReadUint16(key Key, timeoutMs uint32) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := s.ReadRaw(key, buf, timeoutMs); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadUint32 reads a little-endian 32-bit scalar object.
func (s *ClientSlot) ReadUint32(key Key, timeoutMs uint32) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := s.ReadRaw(key, buf, timeoutMs); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadUint64 reads a little-endian 64-bit scalar object.
func (s *ClientSlot) ReadUint64(key Key, timeoutMs uint32) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := s.ReadRaw(key, buf, timeoutMs); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// WriteValue downloads v, encoded little-endian per its concrete width.
// Supported types: uint8, uint16, uint32, uint64 and their signed
// counterparts.
func (s *ClientSlot) WriteValue(key Key, v interface{}, timeoutMs uint32) error {
	var buf []byte
	switch val := v.(type) {
	case uint8:
		buf = []byte{val}
	case int8:
		buf = []byte{uint8(val)}
	case uint16:
		buf = make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, val)
	case int16:
		buf = make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(val))
	case uint32:
		buf = make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, val)
	case int32:
		buf = make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(val))
	case uint64:
		buf = make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, val)
	case int64:
		buf = make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(val))
	default:
		return fmt.Errorf("sdo: unsupported value type %T", v)
	}
	return s.WriteRaw(key, buf, timeoutMs)
}

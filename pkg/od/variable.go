package od

import "encoding/binary"

// Variable is a single object dictionary value, stored as raw little-endian
// bytes the way CiA 301 transmits it on the wire.
type Variable struct {
	raw []byte
}

func NewVariable(raw []byte) *Variable {
	return &Variable{raw: append([]byte(nil), raw...)}
}

func (v *Variable) Uint8() (uint8, error) {
	if len(v.raw) != 1 {
		return 0, ErrDataLong
	}
	return v.raw[0], nil
}

func (v *Variable) Uint16() (uint16, error) {
	if len(v.raw) != 2 {
		return 0, ErrDataLong
	}
	return binary.LittleEndian.Uint16(v.raw), nil
}

func (v *Variable) Uint32() (uint32, error) {
	if len(v.raw) != 4 {
		return 0, ErrDataLong
	}
	return binary.LittleEndian.Uint32(v.raw), nil
}

package od

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

var (
	matchIdxRegExp    = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
	matchSubidxRegExp = regexp.MustCompile(`^([0-9A-Fa-f]{4})sub([0-9A-Fa-f]+)$`)
)

// Load parses an EDS-style INI file into an ObjectDictionary. Only the
// fields this module's SDO client needs are read: DataType (byte width:
// 1, 2 or 4 bytes) and DefaultValue (the value itself, decimal or
// 0x-prefixed hex). ParameterName and all other keys are ignored.
//
// This is intentionally not a full EDS/DCF parser (no ARRAY/RECORD support,
// no PDO mapping): its job is to hand the SDO client slots their
// 0x1280+n COB-ID and server node-id configuration from a config file
// instead of requiring Go code to populate an ObjectDictionary by hand.
func Load(path string) (*ObjectDictionary, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load eds file: %w", err)
	}
	dict := NewObjectDictionary()

	for _, section := range file.Sections() {
		name := section.Name()

		switch {
		case matchIdxRegExp.MatchString(name):
			idx, err := strconv.ParseUint(name, 16, 16)
			if err != nil {
				return nil, err
			}
			dict.AddEntry(NewEntry(uint16(idx)))

		case matchSubidxRegExp.MatchString(name):
			m := matchSubidxRegExp.FindStringSubmatch(name)
			idx, err := strconv.ParseUint(m[1], 16, 16)
			if err != nil {
				return nil, err
			}
			sub, err := strconv.ParseUint(m[2], 16, 8)
			if err != nil {
				return nil, err
			}
			entry := dict.Index(uint16(idx))
			if entry == nil {
				entry = NewEntry(uint16(idx))
				dict.AddEntry(entry)
			}
			raw, err := parseDefaultValue(section)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			entry.Set(uint8(sub), raw)
		}
	}
	return dict, nil
}

func parseDefaultValue(section *ini.Section) ([]byte, error) {
	width, err := dataTypeWidth(section.Key("DataType").String())
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(section.Key("DefaultValue").String())
	var value uint64
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		value, err = strconv.ParseUint(raw[2:], 16, 64)
	} else if raw == "" {
		value = 0
	} else {
		value, err = strconv.ParseUint(raw, 10, 64)
	}
	if err != nil {
		return nil, fmt.Errorf("parse DefaultValue %q: %w", raw, err)
	}
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	}
	return buf, nil
}

// dataTypeWidth maps CiA 301 basic data type codes to their byte width.
// Only the integer/unsigned widths the SDO client config entries use are
// supported.
func dataTypeWidth(code string) (int, error) {
	raw := strings.TrimSpace(code)
	v, err := strconv.ParseUint(strings.TrimPrefix(raw, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parse DataType %q: %w", code, err)
	}
	switch v {
	case 0x02, 0x05: // INTEGER8, UNSIGNED8
		return 1, nil
	case 0x03, 0x06: // INTEGER16, UNSIGNED16
		return 2, nil
	case 0x04, 0x07: // INTEGER32, UNSIGNED32
		return 4, nil
	default:
		return 0, fmt.Errorf("unsupported DataType 0x%x", v)
	}
}

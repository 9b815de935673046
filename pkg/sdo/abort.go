package sdo

import "fmt"

// AbortCode is the 32-bit abort reason carried in an SDO abort transfer
// frame, as defined by CiA 301.
type AbortCode uint32

const (
	AbortToggleBit         AbortCode = 0x05030000
	AbortTimeout           AbortCode = 0x05040000
	AbortCmd               AbortCode = 0x05040001
	AbortBlockSize         AbortCode = 0x05040002
	AbortSeqNum            AbortCode = 0x05040003
	AbortCRC               AbortCode = 0x05040004
	AbortOutOfMem          AbortCode = 0x05040005
	AbortUnsupportedAccess AbortCode = 0x06010000
	AbortWriteOnly         AbortCode = 0x06010001
	AbortReadOnly          AbortCode = 0x06010002
	AbortNotExist          AbortCode = 0x06020000
	AbortNoMap             AbortCode = 0x06040041
	AbortMapLen            AbortCode = 0x06040042
	AbortParamIncompat     AbortCode = 0x06040043
	AbortDeviceIncompat    AbortCode = 0x06040047
	AbortHardware          AbortCode = 0x06060000
	AbortTypeMismatch      AbortCode = 0x06070010
	AbortDataLong          AbortCode = 0x06070012
	AbortDataShort         AbortCode = 0x06070013
	AbortSubUnknown        AbortCode = 0x06090011
	AbortInvalidValue      AbortCode = 0x06090030
	AbortValueHigh         AbortCode = 0x06090031
	AbortValueLow          AbortCode = 0x06090032
	AbortMaxLessMin        AbortCode = 0x06090036
	AbortNoRessource       AbortCode = 0x060A0023
	AbortGeneral           AbortCode = 0x08000000
	AbortDataTransfer      AbortCode = 0x08000020
	AbortDataLocalControl  AbortCode = 0x08000021
	AbortDataDeviceState   AbortCode = 0x08000022
	AbortDataOD            AbortCode = 0x08000023
	AbortNoData            AbortCode = 0x08000024
)

var abortDescriptionMap = map[AbortCode]string{
	AbortToggleBit:         "toggle bit not altered",
	AbortTimeout:           "SDO protocol timed out",
	AbortCmd:               "command specifier not valid or unknown",
	AbortBlockSize:         "invalid block size in block mode",
	AbortSeqNum:            "invalid sequence number in block mode",
	AbortCRC:               "CRC error (block mode only)",
	AbortOutOfMem:          "out of memory",
	AbortUnsupportedAccess: "unsupported access to an object",
	AbortWriteOnly:         "attempt to read a write only object",
	AbortReadOnly:          "attempt to write a read only object",
	AbortNotExist:          "object does not exist in the object dictionary",
	AbortNoMap:             "object cannot be mapped to the PDO",
	AbortMapLen:            "num and len of object to be mapped exceeds PDO len",
	AbortParamIncompat:     "general parameter incompatibility reasons",
	AbortDeviceIncompat:    "general internal incompatibility in device",
	AbortHardware:          "access failed due to hardware error",
	AbortTypeMismatch:      "data type does not match, length does not match",
	AbortDataLong:          "data type does not match, length too high",
	AbortDataShort:         "data type does not match, length too short",
	AbortSubUnknown:        "sub index does not exist",
	AbortInvalidValue:      "invalid value for parameter (download only)",
	AbortValueHigh:         "value range of parameter written too high",
	AbortValueLow:          "value range of parameter written too low",
	AbortMaxLessMin:        "maximum value is less than minimum value",
	AbortNoRessource:       "resource not available: SDO connection",
	AbortGeneral:           "general error",
	AbortDataTransfer:      "data cannot be transferred or stored to application",
	AbortDataLocalControl:  "data cannot be transferred because of local control",
	AbortDataDeviceState:   "data cannot be transferred because of present device state",
	AbortDataOD:            "object dictionary not present or dynamic generation fails",
	AbortNoData:            "no data available",
}

// Description returns the CiA 301 abort reason text, or a generic message
// for unrecognized codes.
func (a AbortCode) Description() string {
	if desc, ok := abortDescriptionMap[a]; ok {
		return desc
	}
	return "unknown abort code"
}

func (a AbortCode) Error() string {
	return fmt.Sprintf("abort (0x%08X): %s", uint32(a), a.Description())
}

package sdo

import "errors"

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrSdoOff          = errors.New("slot is not enabled")
	ErrSdoBusy         = errors.New("slot has a transfer in progress")
)

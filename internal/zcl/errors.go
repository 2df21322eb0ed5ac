package zcl

import "errors"

var (
	// ErrInvalid reports a nil command or envelope.
	ErrInvalid = errors.New("zcl: invalid argument")

	// ErrBadMessage means the payload is too short to hold a ZCL header.
	ErrBadMessage = errors.New("zcl: malformed frame")
)

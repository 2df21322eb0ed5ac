package xbee

import "errors"

var (
	// ErrInvalid reports a nil device, a missing port or an empty frame.
	ErrInvalid = errors.New("xbee: invalid argument")

	// ErrBusy is returned by Tick when called from inside a frame handler, and
	// by WriteFrame when the port cannot take the frame right now.
	ErrBusy = errors.New("xbee: busy")

	// ErrNoData is returned when asked to write a frame with no content.
	ErrNoData = errors.New("xbee: no data")

	// ErrMessageSize means the frame can never fit the port's transmit buffer.
	ErrMessageSize = errors.New("xbee: frame too large for transmit buffer")

	// ErrBadMessage reports a received frame too short for its type.
	ErrBadMessage = errors.New("xbee: malformed frame")
)

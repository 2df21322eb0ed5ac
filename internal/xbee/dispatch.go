package xbee

import "fmt"

// FrameHandler receives frames from the dispatch table. frame is only valid
// during the call.
type FrameHandler interface {
	HandleFrame(d *Device, frame []byte) error
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(d *Device, frame []byte) error

func (f FrameHandlerFunc) HandleFrame(d *Device, frame []byte) error { return f(d, frame) }

// DispatchEntry routes frames of FrameType to Handler. A zero FrameID
// matches every frame id; otherwise byte 1 of the frame must equal it.
type DispatchEntry struct {
	FrameType uint8
	FrameID   uint8
	Handler   FrameHandler
}

// dispatchFrame delivers frame to every matching table entry and returns
// the number of handlers called. Modem status frames update the network
// state before any handler runs.
func (d *Device) dispatchFrame(frame []byte) (int, error) {
	if d == nil || len(frame) == 0 {
		return 0, ErrInvalid
	}
	if frame[0] == FrameModemStatus && len(frame) > 1 {
		d.applyModemStatus(frame[1])
	}

	var id uint8
	if len(frame) > 1 {
		id = frame[1]
	}
	count := 0
	for _, e := range d.handlers {
		if e.FrameType == FrameTypeEnd {
			break
		}
		if e.FrameType != frame[0] || (e.FrameID != 0 && e.FrameID != id) {
			continue
		}
		count++
		if e.Handler == nil {
			continue
		}
		if err := e.Handler.HandleFrame(d, frame); err != nil {
			d.logger.Debug("frame handler error", "type", FrameTypeName(frame[0]),
				"frame_id", fmt.Sprintf("0x%02X", id), "err", err)
		}
	}
	return count, nil
}

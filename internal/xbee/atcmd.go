package xbee

import (
	"fmt"
)

// AT command response statuses.
const (
	ATStatusOK               uint8 = 0x00
	ATStatusError            uint8 = 0x01
	ATStatusInvalidCommand   uint8 = 0x02
	ATStatusInvalidParameter uint8 = 0x03
	ATStatusTxFailure        uint8 = 0x04
)

// ATStatusName returns a human-readable name for an AT response status.
func ATStatusName(status uint8) string {
	switch status {
	case ATStatusOK:
		return "OK"
	case ATStatusError:
		return "Error"
	case ATStatusInvalidCommand:
		return "InvalidCommand"
	case ATStatusInvalidParameter:
		return "InvalidParameter"
	case ATStatusTxFailure:
		return "TxFailure"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", status)
	}
}

// ATResponse is a decoded local AT command response (0x88).
type ATResponse struct {
	FrameID uint8
	Command string
	Status  uint8
	Value   []byte
}

// Uint returns Value as a big-endian unsigned integer of up to 8 bytes.
func (r ATResponse) Uint() (uint64, error) {
	if len(r.Value) == 0 || len(r.Value) > 8 {
		return 0, fmt.Errorf("AT%s: %d byte value is not an integer", r.Command, len(r.Value))
	}
	var v uint64
	for _, b := range r.Value {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Err returns nil for ATStatusOK and a descriptive error otherwise.
func (r ATResponse) Err() error {
	if r.Status == ATStatusOK {
		return nil
	}
	return fmt.Errorf("AT%s: %s", r.Command, ATStatusName(r.Status))
}

// ParseATResponse decodes a local AT command response. Value aliases frame.
func ParseATResponse(frame []byte) (ATResponse, error) {
	if len(frame) < 5 || frame[0] != FrameLocalATResponse {
		return ATResponse{}, ErrBadMessage
	}
	return ATResponse{
		FrameID: frame[1],
		Command: string(frame[2:4]),
		Status:  frame[4],
		Value:   frame[5:],
	}, nil
}

// SendATCommand sends a local AT command and returns its frame id, which the
// response carries. An empty param queries the register.
func (d *Device) SendATCommand(cmd string, param []byte) (uint8, error) {
	if len(cmd) != 2 {
		return 0, fmt.Errorf("AT command %q: %w", cmd, ErrInvalid)
	}
	if d == nil || d.port == nil {
		return 0, ErrInvalid
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	id := d.nextFrameIDLocked()
	header := []byte{FrameLocalATCommand, id, cmd[0], cmd[1]}
	if err := d.writeFrameLocked(header, param); err != nil {
		return 0, fmt.Errorf("AT%s: %w", cmd, err)
	}
	return id, nil
}

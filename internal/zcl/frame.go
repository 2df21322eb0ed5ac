// Package zcl parses and answers ZigBee Cluster Library frames carried in
// wpan envelopes. Attribute values are not decoded here.
package zcl

import (
	"encoding/binary"
	"fmt"

	"xbee-go-home/internal/wpan"
)

// Frame control field.
const (
	FrameTypeMask    uint8 = 0x03
	FrameTypeProfile uint8 = 0x00 // general command, same meaning on every cluster
	FrameTypeCluster uint8 = 0x01 // cluster-specific command

	FrameMfgSpecific            uint8 = 0x04
	FrameDirection              uint8 = 0x08
	FrameServerToClient               = FrameDirection
	FrameClientToServer         uint8 = 0x00
	FrameDisableDefaultResponse uint8 = 0x10
)

const (
	headerLen    = 3
	headerLenMfg = 5
)

// Command is a ZCL frame received in an envelope.
type Command struct {
	Envelope     *wpan.Envelope
	FrameControl uint8
	MfgCode      uint16
	Sequence     uint8
	Command      uint8
	Payload      []byte
}

// ParseCommand splits the envelope payload into ZCL header and command payload.
// Payload aliases the envelope payload.
func ParseCommand(env *wpan.Envelope) (*Command, error) {
	if env == nil {
		return nil, ErrInvalid
	}
	p := env.Payload
	if len(p) < headerLen {
		return nil, fmt.Errorf("%w: %d byte payload", ErrBadMessage, len(p))
	}
	cmd := &Command{Envelope: env, FrameControl: p[0]}
	n := headerLen
	if cmd.FrameControl&FrameMfgSpecific != 0 {
		if len(p) < headerLenMfg {
			return nil, fmt.Errorf("%w: %d byte manufacturer specific payload", ErrBadMessage, len(p))
		}
		cmd.MfgCode = binary.LittleEndian.Uint16(p[1:3])
		n = headerLenMfg
	}
	cmd.Sequence = p[n-2]
	cmd.Command = p[n-1]
	cmd.Payload = p[n:]
	return cmd, nil
}

// Type returns the frame type bits.
func (c *Command) Type() uint8 { return c.FrameControl & FrameTypeMask }

// IsClusterCommand reports whether the command is cluster specific.
func (c *Command) IsClusterCommand() bool { return c.Type() == FrameTypeCluster }

// IsMfgSpecific reports whether the frame carries a manufacturer code.
func (c *Command) IsMfgSpecific() bool { return c.FrameControl&FrameMfgSpecific != 0 }

// FromServer reports whether the command was sent server to client.
func (c *Command) FromServer() bool { return c.FrameControl&FrameDirection != 0 }

// ResponseHeader builds the header of a response to c with the given command
// id: direction toggled, frame type and manufacturer code kept, sequence
// copied and default responses disabled.
func (c *Command) ResponseHeader(command uint8) []byte {
	fc := (FrameDisableDefaultResponse | FrameDirection) ^
		(c.FrameControl & (FrameDirection | FrameTypeMask))
	if c.IsMfgSpecific() {
		fc |= FrameMfgSpecific
		return []byte{fc, byte(c.MfgCode), byte(c.MfgCode >> 8), c.Sequence, command}
	}
	return []byte{fc, c.Sequence, command}
}

// Reply sends payload, prefixed by a response header for command, back to the sender.
func (c *Command) Reply(command uint8, payload []byte) error {
	return sendResponse(c, append(c.ResponseHeader(command), payload...))
}

func sendResponse(c *Command, frame []byte) error {
	if c == nil {
		return ErrInvalid
	}
	reply, err := c.Envelope.Reply()
	if err != nil {
		return err
	}
	reply.Payload = frame
	return reply.Send()
}

func (c *Command) String() string {
	if c.IsMfgSpecific() {
		return fmt.Sprintf("zcl fc 0x%02X mfg 0x%04X seq %d cmd 0x%02X len %d",
			c.FrameControl, c.MfgCode, c.Sequence, c.Command, len(c.Payload))
	}
	return fmt.Sprintf("zcl fc 0x%02X seq %d cmd 0x%02X len %d",
		c.FrameControl, c.Sequence, c.Command, len(c.Payload))
}

package xbee

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"xbee-go-home/internal/wpan"
)

// MaxNodeIdentifierLen is the longest ATNI string a radio reports.
const MaxNodeIdentifierLen = 20

// Device types reported in node identification messages.
const (
	DeviceTypeCoordinator uint8 = 0
	DeviceTypeRouter      uint8 = 1
	DeviceTypeEndDevice   uint8 = 2
)

// Node identification source events.
const (
	NodeIDEventNone       uint8 = 0
	NodeIDEventPushbutton uint8 = 1
	NodeIDEventJoined     uint8 = 2
	NodeIDEventPowerCycle uint8 = 3
)

// DeviceTypeName returns "Coord", "Router", "EndDev" or "???".
func DeviceTypeName(t uint8) string {
	switch t {
	case DeviceTypeCoordinator:
		return "Coord"
	case DeviceTypeRouter:
		return "Router"
	case DeviceTypeEndDevice:
		return "EndDev"
	default:
		return "???"
	}
}

// NodeID describes a remote radio, from an ATND response or a node
// identification (0x95) frame.
type NodeID struct {
	IEEE       wpan.Addr64
	Network    uint16
	Parent     uint16
	DeviceType uint8
	Identifier string

	// Only present when the message carries them.
	SourceEvent  uint8
	Profile      uint16
	Manufacturer uint16
}

func (n NodeID) String() string {
	return fmt.Sprintf("%s 0x%04X parent 0x%04X %s NI:[%s]",
		n.IEEE, n.Network, n.Parent, DeviceTypeName(n.DeviceType), n.Identifier)
}

// ParseNodeID decodes the node data shared by ATND responses, 0x95 frames
// and the Digi node id cluster: network, ieee, NUL terminated identifier,
// parent and device type, then optionally source event, profile and
// manufacturer.
func ParseNodeID(data []byte) (NodeID, error) {
	var n NodeID
	if len(data) < 10 {
		return n, ErrBadMessage
	}
	n.Network = binary.BigEndian.Uint16(data)
	copy(n.IEEE[:], data[2:10])

	rest := data[10:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 || end > MaxNodeIdentifierLen {
		return n, ErrBadMessage
	}
	n.Identifier = string(rest[:end])

	rest = rest[end+1:]
	if len(rest) < 3 {
		return n, ErrBadMessage
	}
	n.Parent = binary.BigEndian.Uint16(rest)
	n.DeviceType = rest[2]
	if len(rest) >= 8 {
		n.SourceEvent = rest[3]
		n.Profile = binary.BigEndian.Uint16(rest[4:])
		n.Manufacturer = binary.BigEndian.Uint16(rest[6:])
	}
	return n, nil
}

// nodeIDHeaderLen covers frame type, sender ieee, sender network and options.
const nodeIDHeaderLen = 12

// ParseNodeIDFrame decodes a node identification indicator (0x95) frame.
func ParseNodeIDFrame(frame []byte) (NodeID, error) {
	if len(frame) < nodeIDHeaderLen || frame[0] != FrameNodeID {
		return NodeID{}, ErrBadMessage
	}
	return ParseNodeID(frame[nodeIDHeaderLen:])
}

// DiscoverNodes sends ATND. With an identifier only the matching node
// answers; otherwise every node replies with one ND response each.
func (d *Device) DiscoverNodes(identifier string) (uint8, error) {
	if len(identifier) > MaxNodeIdentifierLen {
		return 0, fmt.Errorf("node identifier %q: %w", identifier, ErrInvalid)
	}
	var param []byte
	if identifier != "" {
		param = []byte(identifier)
	}
	return d.SendATCommand("ND", param)
}

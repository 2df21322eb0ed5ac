// Package xbee drives a Digi XBee radio in API mode: frame sync and
// checksum, the frame dispatch table, frame ids, flow-controlled writes,
// modem and transmit status, explicit addressing and local AT commands.
package xbee

import (
	"encoding/binary"
	"fmt"
)

// --- Wire framing ---

const (
	// StartByte begins every API frame.
	StartByte = 0x7E

	// MaxRFPayload is the largest RF payload the radio accepts in one frame.
	MaxRFPayload = 128
	// MaxFrameLen bounds the length field: payload plus the largest header.
	MaxFrameLen = MaxRFPayload + 18

	// MaxDispatchPerTick caps frames handled by one Tick.
	MaxDispatchPerTick = 5

	// frameOverhead is start byte, length and checksum.
	frameOverhead = 4
)

// --- Frame types ---

const (
	FrameLocalATCommand      uint8 = 0x08
	FrameLocalATQueued       uint8 = 0x09
	FrameTransmit            uint8 = 0x10
	FrameTransmitExplicit    uint8 = 0x11
	FrameRemoteATCommand     uint8 = 0x17
	FrameCreateSourceRoute   uint8 = 0x21
	FrameRegisterJoiningDev  uint8 = 0x24
	FrameLocalATResponse     uint8 = 0x88
	FrameModemStatus         uint8 = 0x8A
	FrameTransmitStatus      uint8 = 0x8B
	FrameRouteInfo           uint8 = 0x8D
	FrameAggregateAddressing uint8 = 0x8E
	FrameReceive             uint8 = 0x90
	FrameReceiveExplicit     uint8 = 0x91
	FrameIOResponse          uint8 = 0x92
	FrameSensorRead          uint8 = 0x94
	FrameNodeID              uint8 = 0x95
	FrameRemoteATResponse    uint8 = 0x97
	FrameFWUpdateStatus      uint8 = 0xA0
	FrameRouteRecord         uint8 = 0xA1
	FrameDeviceAuthenticated uint8 = 0xA2
	FrameRouteRequest        uint8 = 0xA3
	FrameRegisterJoinStatus  uint8 = 0xA4
	FrameJoinNotification    uint8 = 0xA5

	// FrameTypeEnd terminates a dispatch table.
	FrameTypeEnd uint8 = 0xFF
)

// FrameTypeName returns a human-readable name for a frame type.
func FrameTypeName(t uint8) string {
	switch t {
	case FrameLocalATCommand:
		return "LocalATCommand"
	case FrameLocalATQueued:
		return "LocalATQueued"
	case FrameTransmit:
		return "Transmit"
	case FrameTransmitExplicit:
		return "TransmitExplicit"
	case FrameRemoteATCommand:
		return "RemoteATCommand"
	case FrameCreateSourceRoute:
		return "CreateSourceRoute"
	case FrameRegisterJoiningDev:
		return "RegisterJoiningDevice"
	case FrameLocalATResponse:
		return "LocalATResponse"
	case FrameModemStatus:
		return "ModemStatus"
	case FrameTransmitStatus:
		return "TransmitStatus"
	case FrameRouteInfo:
		return "RouteInfo"
	case FrameAggregateAddressing:
		return "AggregateAddressing"
	case FrameReceive:
		return "Receive"
	case FrameReceiveExplicit:
		return "ReceiveExplicit"
	case FrameIOResponse:
		return "IOResponse"
	case FrameSensorRead:
		return "SensorRead"
	case FrameNodeID:
		return "NodeIdentification"
	case FrameRemoteATResponse:
		return "RemoteATResponse"
	case FrameFWUpdateStatus:
		return "FirmwareUpdateStatus"
	case FrameRouteRecord:
		return "RouteRecord"
	case FrameDeviceAuthenticated:
		return "DeviceAuthenticated"
	case FrameRouteRequest:
		return "RouteRequestIndicator"
	case FrameRegisterJoinStatus:
		return "RegisterJoiningDeviceStatus"
	case FrameJoinNotification:
		return "JoinNotificationStatus"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", t)
	}
}

// hasFrameID reports whether byte 1 of frames of this type is a frame id.
func hasFrameID(t uint8) bool {
	switch t {
	case FrameLocalATCommand, FrameLocalATQueued, FrameTransmit, FrameTransmitExplicit,
		FrameRemoteATCommand, FrameCreateSourceRoute, FrameRegisterJoiningDev,
		FrameLocalATResponse, FrameTransmitStatus, FrameRemoteATResponse, FrameRegisterJoinStatus:
		return true
	}
	return false
}

// FrameID returns the frame id of frame, or 0 for frame types without one.
func FrameID(frame []byte) uint8 {
	if len(frame) < 2 || !hasFrameID(frame[0]) {
		return 0
	}
	return frame[1]
}

// Checksum subtracts every byte of parts from initial. A frame's checksum is
// Checksum(0xFF, body); running it over body and checksum yields 0.
func Checksum(initial byte, parts ...[]byte) byte {
	sum := initial
	for _, p := range parts {
		for _, b := range p {
			sum -= b
		}
	}
	return sum
}

// EncodeFrame wraps header and data in start byte, big-endian length and checksum.
func EncodeFrame(header, data []byte) ([]byte, error) {
	n := len(header) + len(data)
	if n == 0 {
		return nil, ErrNoData
	}
	if n > 0xFFFF {
		return nil, ErrMessageSize
	}
	buf := make([]byte, 0, n+frameOverhead)
	buf = append(buf, StartByte)
	buf = binary.BigEndian.AppendUint16(buf, uint16(n))
	buf = append(buf, header...)
	buf = append(buf, data...)
	buf = append(buf, Checksum(0xFF, header, data))
	return buf, nil
}

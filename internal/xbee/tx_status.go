package xbee

import (
	"encoding/binary"
	"fmt"
)

// Transmit status delivery codes.
const (
	DeliverySuccess              uint8 = 0x00
	DeliveryMACAckFail           uint8 = 0x01
	DeliveryCCAFail              uint8 = 0x02
	DeliveryBadDestEndpoint      uint8 = 0x15
	DeliveryNetworkAckFail       uint8 = 0x21
	DeliveryNotJoined            uint8 = 0x22
	DeliverySelfAddressed        uint8 = 0x23
	DeliveryAddressNotFound      uint8 = 0x24
	DeliveryRouteNotFound        uint8 = 0x25
	DeliveryBroadcastNotHeard    uint8 = 0x26
	DeliveryInvalidBindingIndex  uint8 = 0x2B
	DeliveryInvalidEndpoint      uint8 = 0x2C
	DeliveryCannotBroadcastAPS   uint8 = 0x2D
	DeliveryEncryptionDisabled   uint8 = 0x2E
	DeliveryResourceError        uint8 = 0x32
	DeliveryPayloadTooBig        uint8 = 0x74
	DeliveryIndirectNotRequested uint8 = 0x75
	DeliveryKeyNotAuthorized     uint8 = 0xBB
)

// Transmit status discovery codes.
const (
	DiscoveryNone            uint8 = 0x00
	DiscoveryAddress         uint8 = 0x01
	DiscoveryRoute           uint8 = 0x02
	DiscoveryExtendedTimeout uint8 = 0x40
)

// DeliveryName returns a human-readable name for a delivery status.
func DeliveryName(status uint8) string {
	switch status {
	case DeliverySuccess:
		return "Success"
	case DeliveryMACAckFail:
		return "MACAckFailure"
	case DeliveryCCAFail:
		return "CCAFailure"
	case DeliveryBadDestEndpoint:
		return "InvalidDestinationEndpoint"
	case DeliveryNetworkAckFail:
		return "NetworkAckFailure"
	case DeliveryNotJoined:
		return "NotJoined"
	case DeliverySelfAddressed:
		return "SelfAddressed"
	case DeliveryAddressNotFound:
		return "AddressNotFound"
	case DeliveryRouteNotFound:
		return "RouteNotFound"
	case DeliveryBroadcastNotHeard:
		return "BroadcastNotHeard"
	case DeliveryInvalidBindingIndex:
		return "InvalidBindingIndex"
	case DeliveryInvalidEndpoint:
		return "InvalidEndpoint"
	case DeliveryCannotBroadcastAPS:
		return "CannotBroadcastAPS"
	case DeliveryEncryptionDisabled:
		return "EncryptionDisabled"
	case DeliveryResourceError:
		return "ResourceError"
	case DeliveryPayloadTooBig:
		return "PayloadTooBig"
	case DeliveryIndirectNotRequested:
		return "IndirectMessageUnrequested"
	case DeliveryKeyNotAuthorized:
		return "KeyNotAuthorized"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", status)
	}
}

// DiscoveryName returns a human-readable name for a discovery status.
func DiscoveryName(status uint8) string {
	switch status {
	case DiscoveryNone:
		return "None"
	case DiscoveryAddress:
		return "Address"
	case DiscoveryRoute:
		return "Route"
	case DiscoveryAddress | DiscoveryRoute:
		return "AddressAndRoute"
	case DiscoveryExtendedTimeout:
		return "ExtendedTimeout"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", status)
	}
}

// TransmitStatus is a decoded transmit status frame (0x8B).
type TransmitStatus struct {
	FrameID   uint8  `json:"frame_id"`
	Network   uint16 `json:"network"`
	Retries   uint8  `json:"retries"`
	Delivery  uint8  `json:"delivery"`
	Discovery uint8  `json:"discovery"`
}

// Ok reports whether the frame was delivered.
func (s TransmitStatus) Ok() bool { return s.Delivery == DeliverySuccess }

// ParseTransmitStatus decodes a transmit status frame.
func ParseTransmitStatus(frame []byte) (TransmitStatus, error) {
	if len(frame) < 7 || frame[0] != FrameTransmitStatus {
		return TransmitStatus{}, ErrBadMessage
	}
	return TransmitStatus{
		FrameID:   frame[1],
		Network:   binary.BigEndian.Uint16(frame[2:4]),
		Retries:   frame[4],
		Delivery:  frame[5],
		Discovery: frame[6],
	}, nil
}

// Package wpan implements the application support layer shared by every
// radio backend: addressing, envelopes, endpoint and cluster tables, envelope
// dispatch and per-endpoint conversation tracking.
package wpan

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addr64 is a 64-bit IEEE address, stored big-endian (most significant byte first).
type Addr64 [8]byte

var (
	// Addr64Broadcast is the all-ones broadcast address.
	Addr64Broadcast = Addr64{0, 0, 0, 0, 0, 0, 0xFF, 0xFF}
	// Addr64Undefined marks an address that has not been learned yet.
	Addr64Undefined = Addr64{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	// Addr64Coordinator addresses the network coordinator.
	Addr64Coordinator = Addr64{}
)

// String formats the address as "00:13:A2:00:40:0A:01:27".
func (a Addr64) String() string {
	var b strings.Builder
	for i, v := range a {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// Hex formats the address as 16 uppercase hex digits, the form used for store keys and topics.
func (a Addr64) Hex() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// ParseAddr64 parses "DD:DD:DD:DD:DD:DD:DD:DD", "DD-DD-..." or "DDDDDDDDDDDDDDDD".
func ParseAddr64(s string) (Addr64, error) {
	var a Addr64
	s = strings.NewReplacer(":", "", "-", "", " ", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse addr64: %w", err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("addr64 must be 8 bytes, got %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// --- Network (16-bit) addresses ---

const (
	NetAddrBroadcastAll       uint16 = 0xFFFF
	NetAddrBroadcastNotAsleep uint16 = 0xFFFD
	NetAddrBroadcastRouters   uint16 = 0xFFFC
	NetAddrUndefined          uint16 = 0xFFFE
	NetAddrCoordinator        uint16 = 0x0000
)

// --- Profiles ---

const (
	ProfileZDO            uint16 = 0x0000
	ProfileHomeAutomation uint16 = 0x0104
	ProfileSmartEnergy    uint16 = 0x0109
	ProfileDigi           uint16 = 0xC105

	// ProfileAny matches every profile in EndpointMatch.
	ProfileAny uint16 = 0xFFFF
)

// --- Endpoints ---

const (
	EndpointZDO      uint8 = 0x00
	EndpointDigiSE   uint8 = 0x5E
	EndpointDDO      uint8 = 0xE6
	EndpointDigiData uint8 = 0xE8

	// EndpointBroadcast as a destination means every endpoint sharing the envelope's profile.
	EndpointBroadcast uint8 = 0xFF
	// EndpointEnd terminates an endpoint table.
	EndpointEnd uint8 = 0xFF
)

// --- Digi data endpoint clusters ---

const (
	ClusterDigiSerial       uint16 = 0x0011
	ClusterDigiLoopback     uint16 = 0x0012
	ClusterDigiSerialStatus uint16 = 0x0091
	ClusterDigiNodeID       uint16 = 0x0095

	// ClusterEnd terminates a cluster table.
	ClusterEnd uint16 = 0xFFFF
)

// Device flags reflecting the radio's view of the network.
type Flags uint16

const (
	FlagJoined                Flags = 0x0001
	FlagAuthenticated         Flags = 0x0002
	FlagAuthenticationEnabled Flags = 0x0004
)

// Address is the local node's IEEE and network address.
type Address struct {
	IEEE    Addr64
	Network uint16
}

// SendFlags modify how a radio transmits an envelope.
type SendFlags uint16

const (
	SendFlagNone  SendFlags = 0x0000
	SendEncrypted SendFlags = 0x0001
)

package wpan

import (
	"fmt"
	"strings"
)

// Options is the envelope options bitfield. The low byte mirrors the flags
// of the cluster matched during dispatch; the high bits describe how the
// frame was received.
type Options uint16

const (
	// OptionsClusterFlags masks the copy of the matched cluster's flags.
	OptionsClusterFlags Options = 0x00FF

	// BroadcastAddr: received on a broadcast network address.
	BroadcastAddr Options = 0x0100
	// BroadcastEP: received on the broadcast endpoint (0xFF).
	BroadcastEP Options = 0x0200
	// RxAPSEncrypt: received with APS encryption.
	RxAPSEncrypt Options = 0x0400
)

// ClusterFlags returns the cluster flags merged into the options by dispatch.
func (o Options) ClusterFlags() ClusterFlags {
	return ClusterFlags(o & OptionsClusterFlags)
}

// IsBroadcast reports whether the frame arrived on a broadcast address or endpoint.
func (o Options) IsBroadcast() bool {
	return o&(BroadcastAddr|BroadcastEP) != 0
}

// Envelope is the addressing and payload of one application-layer message.
// Payload is borrowed from the frame being dispatched; handlers that keep it
// past their return must copy it.
type Envelope struct {
	Dev            *Device
	IEEE           Addr64
	Network        uint16
	Profile        uint16
	Cluster        uint16
	SourceEndpoint uint8
	DestEndpoint   uint8
	Options        Options
	Payload        []byte
}

// NewEnvelope creates an envelope addressed to a remote node. Profile,
// cluster and endpoints are left for the caller.
func NewEnvelope(dev *Device, ieee Addr64, network uint16) *Envelope {
	return &Envelope{
		Dev:     dev,
		IEEE:    ieee,
		Network: network,
	}
}

// Reply builds a response envelope for env.
func (env *Envelope) Reply() (*Envelope, error) {
	reply := new(Envelope)
	if err := ReplyInto(reply, env); err != nil {
		return nil, err
	}
	return reply, nil
}

// ReplyInto addresses dst as a reply to src: device, addresses, profile and
// cluster are copied, endpoints are swapped and the payload is cleared. dst
// is marked for encrypted sending iff src was received encrypted.
func ReplyInto(dst, src *Envelope) error {
	if dst == nil || src == nil || dst == src {
		return ErrInvalid
	}
	*dst = Envelope{
		Dev:            src.Dev,
		IEEE:           src.IEEE,
		Network:        src.Network,
		Profile:        src.Profile,
		Cluster:        src.Cluster,
		SourceEndpoint: src.DestEndpoint,
		DestEndpoint:   src.SourceEndpoint,
	}
	if src.Options&RxAPSEncrypt != 0 {
		dst.Options = Options(ClusterFlagEncrypt)
	}
	return nil
}

// Send hands the envelope to the device's radio. Envelopes carrying the
// cluster encrypt flag are sent with APS encryption.
func (env *Envelope) Send() error {
	if env == nil || env.Dev == nil || env.Dev.radio == nil {
		return ErrInvalid
	}
	flags := SendFlagNone
	if env.Options.ClusterFlags()&ClusterFlagEncrypt != 0 {
		flags |= SendEncrypted
	}
	return env.Dev.radio.EndpointSend(env, flags)
}

// String summarises the envelope for debug logs.
func (env *Envelope) String() string {
	if env == nil {
		return "envelope(nil)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (0x%04X) ep 0x%02X->0x%02X profile 0x%04X cluster 0x%04X options 0x%04X",
		env.IEEE, env.Network, env.SourceEndpoint, env.DestEndpoint,
		env.Profile, env.Cluster, uint16(env.Options))
	fmt.Fprintf(&b, " len %d", len(env.Payload))
	if len(env.Payload) > 0 {
		fmt.Fprintf(&b, " [% X]", env.Payload)
	}
	return b.String()
}

package xbee

import (
	"encoding/binary"

	"xbee-go-home/internal/wpan"
)

// Receive options of explicit RX frames.
const (
	RxOptAcknowledged  uint8 = 0x01
	RxOptBroadcast     uint8 = 0x02
	RxOptAPSEncrypt    uint8 = 0x20
	RxOptFromEndDevice uint8 = 0x40

	receiveExplicitHead = 18
)

// Transmit options of explicit TX frames.
const (
	TxOptDisableRetries  uint8 = 0x01
	TxOptAPSEncrypt      uint8 = 0x20
	TxOptExtendedTimeout uint8 = 0x40

	transmitExplicitHead = 20
)

// ReceiveExplicitHandler turns explicit RX frames (0x91) into envelopes and
// dispatches them into the device's application layer.
type ReceiveExplicitHandler struct {
	// OnEnvelope, when set, sees every envelope before dispatch.
	OnEnvelope func(env *wpan.Envelope)
}

func (h ReceiveExplicitHandler) HandleFrame(d *Device, frame []byte) error {
	env, err := ParseReceiveExplicit(d.wpan, frame)
	if err != nil {
		return err
	}
	if h.OnEnvelope != nil {
		h.OnEnvelope(env)
	}
	if d.wpan == nil {
		return wpan.ErrNotFound
	}
	return d.wpan.Dispatch(env)
}

// ParseReceiveExplicit decodes an explicit RX frame. The envelope payload
// aliases frame.
func ParseReceiveExplicit(dev *wpan.Device, frame []byte) (*wpan.Envelope, error) {
	if len(frame) < receiveExplicitHead || frame[0] != FrameReceiveExplicit {
		return nil, ErrBadMessage
	}
	env := &wpan.Envelope{
		Dev:            dev,
		Network:        binary.BigEndian.Uint16(frame[9:11]),
		SourceEndpoint: frame[11],
		DestEndpoint:   frame[12],
		Cluster:        binary.BigEndian.Uint16(frame[13:15]),
		Profile:        binary.BigEndian.Uint16(frame[15:17]),
		Payload:        frame[receiveExplicitHead:],
	}
	copy(env.IEEE[:], frame[1:9])
	opts := frame[17]
	if opts&RxOptBroadcast != 0 {
		env.Options |= wpan.BroadcastAddr
	}
	if opts&RxOptAPSEncrypt != 0 {
		env.Options |= wpan.RxAPSEncrypt
	}
	return env, nil
}

// buildTransmitExplicit lays out the explicit TX header.
func buildTransmitExplicit(frameID uint8, env *wpan.Envelope, flags wpan.SendFlags) []byte {
	h := make([]byte, transmitExplicitHead)
	h[0] = FrameTransmitExplicit
	h[1] = frameID
	copy(h[2:10], env.IEEE[:])
	binary.BigEndian.PutUint16(h[10:12], env.Network)
	h[12] = env.SourceEndpoint
	h[13] = env.DestEndpoint
	binary.BigEndian.PutUint16(h[14:16], env.Cluster)
	binary.BigEndian.PutUint16(h[16:18], env.Profile)
	h[18] = 0 // broadcast radius: network maximum
	if flags&wpan.SendEncrypted != 0 {
		h[19] = TxOptAPSEncrypt
	}
	return h
}

// SendExplicit transmits env as an explicit TX frame and returns its frame id.
func (d *Device) SendExplicit(env *wpan.Envelope, flags wpan.SendFlags) (uint8, error) {
	if d == nil || d.port == nil || env == nil {
		return 0, ErrInvalid
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	id := d.nextFrameIDLocked()
	if err := d.writeFrameLocked(buildTransmitExplicit(id, env, flags), env.Payload); err != nil {
		return 0, err
	}
	return id, nil
}

// EndpointSend implements wpan.Radio.
func (d *Device) EndpointSend(env *wpan.Envelope, flags wpan.SendFlags) error {
	_, err := d.SendExplicit(env, flags)
	return err
}

var _ wpan.Radio = (*Device)(nil)

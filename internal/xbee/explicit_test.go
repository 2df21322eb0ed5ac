package xbee

import (
	"bytes"
	"errors"
	"testing"

	"xbee-go-home/internal/wpan"
	"xbee-go-home/internal/xbee/xbeetest"
)

var testIEEE = wpan.Addr64{0x00, 0x13, 0xA2, 0x00, 0x40, 0x0A, 0x01, 0x27}

func rxExplicit(options uint8, payload ...byte) []byte {
	f := []byte{FrameReceiveExplicit}
	f = append(f, testIEEE[:]...)
	f = append(f,
		0x12, 0x34, // network
		0x0A, 0x01, // endpoints src, dst
		0x00, 0x06, // cluster
		0x01, 0x04, // profile
		options)
	return append(f, payload...)
}

func TestParseReceiveExplicit(t *testing.T) {
	tests := []struct {
		name    string
		options uint8
		want    wpan.Options
	}{
		{"unicast", RxOptAcknowledged, 0},
		{"broadcast", RxOptBroadcast, wpan.BroadcastAddr},
		{"encrypted", RxOptAPSEncrypt, wpan.RxAPSEncrypt},
		{"both", RxOptBroadcast | RxOptAPSEncrypt | RxOptFromEndDevice, wpan.BroadcastAddr | wpan.RxAPSEncrypt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseReceiveExplicit(nil, rxExplicit(tt.options, 0x10, 0x20))
			if err != nil {
				t.Fatalf("ParseReceiveExplicit: %v", err)
			}
			if env.IEEE != testIEEE || env.Network != 0x1234 {
				t.Errorf("address = %s/0x%04X", env.IEEE, env.Network)
			}
			if env.SourceEndpoint != 0x0A || env.DestEndpoint != 0x01 {
				t.Errorf("endpoints = 0x%02X->0x%02X", env.SourceEndpoint, env.DestEndpoint)
			}
			if env.Cluster != 0x0006 || env.Profile != 0x0104 {
				t.Errorf("cluster/profile = 0x%04X/0x%04X", env.Cluster, env.Profile)
			}
			if env.Options != tt.want {
				t.Errorf("options = 0x%04X, want 0x%04X", env.Options, tt.want)
			}
			if !bytes.Equal(env.Payload, []byte{0x10, 0x20}) {
				t.Errorf("payload = % X", env.Payload)
			}
		})
	}
}

func TestParseReceiveExplicitShort(t *testing.T) {
	f := rxExplicit(0)
	if env, err := ParseReceiveExplicit(nil, f); err != nil || len(env.Payload) != 0 {
		t.Errorf("empty payload: %v", err)
	}
	if _, err := ParseReceiveExplicit(nil, f[:len(f)-1]); !errors.Is(err, ErrBadMessage) {
		t.Errorf("17 byte frame = %v, want ErrBadMessage", err)
	}
}

func TestReceiveExplicitDispatch(t *testing.T) {
	var got *wpan.Envelope
	w := wpan.NewDevice(nil, wpan.WithEndpoints(&wpan.Endpoint{
		ID:      0x01,
		Profile: wpan.ProfileHomeAutomation,
		Clusters: []wpan.Cluster{{ID: 0x0006, Flags: wpan.ClusterFlagInput,
			Handler: wpan.ClusterHandlerFunc(func(env *wpan.Envelope) error {
				got = env
				return nil
			})}},
	}))
	port := xbeetest.NewPort()
	var seen int
	d := NewDevice(port, nil, WithWPAN(w), WithFrameHandlers(DispatchEntry{
		FrameType: FrameReceiveExplicit,
		Handler:   ReceiveExplicitHandler{OnEnvelope: func(*wpan.Envelope) { seen++ }},
	}))
	w.SetRadio(d)

	port.FeedFrame(rxExplicit(0, 0x01, 0x02, 0x03)...)
	if err := w.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got == nil {
		t.Fatal("cluster handler not reached")
	}
	if got.Dev != w || seen != 1 {
		t.Errorf("envelope dev = %p, seen = %d", got.Dev, seen)
	}
}

func TestEndpointSend(t *testing.T) {
	port := xbeetest.NewPort()
	d := NewDevice(port, nil)
	w := wpan.NewDevice(d)

	env := wpan.NewEnvelope(w, testIEEE, 0x1234)
	env.SourceEndpoint = 0xE8
	env.DestEndpoint = 0xE8
	env.Cluster = wpan.ClusterDigiSerial
	env.Profile = wpan.ProfileDigi
	env.Payload = []byte("hi")

	id, err := d.SendExplicit(env, wpan.SendEncrypted)
	if err != nil {
		t.Fatalf("SendExplicit: %v", err)
	}
	if id != 1 {
		t.Errorf("frame id = %d, want 1", id)
	}
	want := []byte{FrameTransmitExplicit, 0x01}
	want = append(want, testIEEE[:]...)
	want = append(want, 0x12, 0x34, 0xE8, 0xE8, 0x00, 0x11, 0xC1, 0x05, 0x00, TxOptAPSEncrypt, 'h', 'i')
	frame := xbeetest.Frame(want...)
	if !bytes.Equal(port.Written(), frame) {
		t.Errorf("written = % X\nwant      % X", port.Written(), frame)
	}

	// through the envelope, unencrypted, next frame id
	port.Reset()
	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	w2 := port.Written()
	if w2[4] != 0x02 || w2[3+19] != 0x00 {
		t.Errorf("frame id 0x%02X options 0x%02X, want 0x02 0x00", w2[4], w2[3+19])
	}
}

func TestParseTransmitStatus(t *testing.T) {
	s, err := ParseTransmitStatus([]byte{FrameTransmitStatus, 0x47, 0xFF, 0xFE, 0x02, 0x21, 0x01})
	if err != nil {
		t.Fatalf("ParseTransmitStatus: %v", err)
	}
	want := TransmitStatus{FrameID: 0x47, Network: 0xFFFE, Retries: 2, Delivery: DeliveryNetworkAckFail, Discovery: DiscoveryAddress}
	if s != want {
		t.Errorf("status = %+v, want %+v", s, want)
	}
	if s.Ok() {
		t.Error("Ok() for NetworkAckFailure")
	}
	if DeliveryName(s.Delivery) != "NetworkAckFailure" || DiscoveryName(s.Discovery) != "Address" {
		t.Errorf("names = %s/%s", DeliveryName(s.Delivery), DiscoveryName(s.Discovery))
	}
	if _, err := ParseTransmitStatus([]byte{FrameTransmitStatus, 1, 2, 3, 4, 5}); !errors.Is(err, ErrBadMessage) {
		t.Errorf("short frame = %v", err)
	}
}

func TestATCommand(t *testing.T) {
	port := xbeetest.NewPort()
	d := NewDevice(port, nil)
	id, err := d.SendATCommand("NJ", nil)
	if err != nil {
		t.Fatalf("SendATCommand: %v", err)
	}
	if !bytes.Equal(port.Written(), []byte{0x7E, 0x00, 0x04, 0x08, id, 0x4E, 0x4A, 0x5E}) {
		t.Errorf("written = % X", port.Written())
	}
	if _, err := d.SendATCommand("N", nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("one letter command = %v", err)
	}

	r, err := ParseATResponse([]byte{FrameLocalATResponse, 0x05, 'S', 'H', ATStatusOK, 0x00, 0x13, 0xA2, 0x00})
	if err != nil {
		t.Fatalf("ParseATResponse: %v", err)
	}
	if r.FrameID != 5 || r.Command != "SH" || r.Err() != nil {
		t.Errorf("response = %+v", r)
	}
	if v, err := r.Uint(); err != nil || v != 0x0013A200 {
		t.Errorf("Uint() = 0x%X, %v", v, err)
	}

	r, _ = ParseATResponse([]byte{FrameLocalATResponse, 0x06, 'X', 'X', ATStatusInvalidCommand})
	if r.Err() == nil {
		t.Error("Err() nil for invalid command")
	}
	if _, err := r.Uint(); err == nil {
		t.Error("Uint() on empty value")
	}
}

package zcl

import "xbee-go-home/internal/wpan"

type sentFrame struct {
	env   wpan.Envelope
	flags wpan.SendFlags
}

type fakeRadio struct {
	sent []sentFrame
	err  error
}

func (r *fakeRadio) EndpointSend(env *wpan.Envelope, flags wpan.SendFlags) error {
	if r.err != nil {
		return r.err
	}
	cp := *env
	cp.Payload = append([]byte(nil), env.Payload...)
	r.sent = append(r.sent, sentFrame{env: cp, flags: flags})
	return nil
}

func (r *fakeRadio) Tick() (int, error) { return 0, nil }

var remote = wpan.Addr64{0x00, 0x13, 0xA2, 0x00, 0x40, 0x0A, 0x01, 0x27}

func request(radio *fakeRadio, opts wpan.Options, payload ...byte) *wpan.Envelope {
	dev := wpan.NewDevice(radio)
	env := wpan.NewEnvelope(dev, remote, 0x1234)
	env.Profile = wpan.ProfileHomeAutomation
	env.Cluster = ClusterOnOff
	env.SourceEndpoint = 0x0A
	env.DestEndpoint = 0x01
	env.Options = opts
	env.Payload = payload
	return env
}

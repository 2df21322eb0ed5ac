package wpan

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeRadio struct {
	sent    []*Envelope
	flags   []SendFlags
	sendErr error
	ticks   int
	tickErr error
	onTick  func()
}

func (r *fakeRadio) EndpointSend(env *Envelope, flags SendFlags) error {
	cp := *env
	cp.Payload = append([]byte(nil), env.Payload...)
	r.sent = append(r.sent, &cp)
	r.flags = append(r.flags, flags)
	return r.sendErr
}

func (r *fakeRadio) Tick() (int, error) {
	r.ticks++
	if r.onTick != nil {
		r.onTick()
	}
	return 0, r.tickErr
}

type manualClock struct{ now uint32 }

func (c *manualClock) Seconds() uint32 { return c.now }

func TestClusterMatch(t *testing.T) {
	table := []Cluster{
		{ID: 0x0001, Flags: ClusterFlagInput},
		{ID: 0x0002, Flags: ClusterFlagOutput},
		{ID: ClusterEnd},
		{ID: 0x0003, Flags: ClusterFlagInOut},
	}

	tests := []struct {
		name string
		id   uint16
		mask ClusterFlags
		want bool
	}{
		{"input matches input", 0x0001, ClusterFlagInput, true},
		{"input matches inout", 0x0001, ClusterFlagInOut, true},
		{"input vs output mask", 0x0001, ClusterFlagOutput, false},
		{"output matches inout", 0x0002, ClusterFlagInOut, true},
		{"output vs input mask", 0x0002, ClusterFlagInput, false},
		{"unknown id", 0x0004, ClusterFlagInOut, false},
		{"after sentinel", 0x0003, ClusterFlagInOut, false},
		{"sentinel itself", ClusterEnd, ClusterFlagInOut, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClusterMatch(tt.id, tt.mask, table)
			if (got != nil) != tt.want {
				t.Fatalf("ClusterMatch(0x%04X, 0x%02X) = %v, want match %v", tt.id, tt.mask, got, tt.want)
			}
			if got != nil && got.ID != tt.id {
				t.Errorf("matched id = 0x%04X, want 0x%04X", got.ID, tt.id)
			}
		})
	}
}

func TestEndpointMatch(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x00, Profile: ProfileZDO},
		&Endpoint{ID: 0xE8, Profile: ProfileDigi},
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation},
	))

	if ep := d.EndpointMatch(0xE8, ProfileDigi); ep == nil || ep.ID != 0xE8 {
		t.Errorf("EndpointMatch(0xE8, Digi) = %v", ep)
	}
	if ep := d.EndpointMatch(0xE8, ProfileHomeAutomation); ep != nil {
		t.Errorf("EndpointMatch(0xE8, HA) = %v, want nil", ep)
	}
	if ep := d.EndpointMatch(0x01, ProfileAny); ep == nil || ep.Profile != ProfileHomeAutomation {
		t.Errorf("EndpointMatch(0x01, Any) = %v", ep)
	}
	if ep := d.EndpointMatch(0x02, ProfileAny); ep != nil {
		t.Errorf("EndpointMatch(0x02, Any) = %v, want nil", ep)
	}
}

func TestEndpointTableSentinel(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation},
		&Endpoint{ID: EndpointEnd},
		&Endpoint{ID: 0x02, Profile: ProfileHomeAutomation},
	))
	if n := len(d.Endpoints()); n != 1 {
		t.Fatalf("len(Endpoints) = %d, want 1", n)
	}
	if ep := d.EndpointMatch(0x02, ProfileAny); ep != nil {
		t.Errorf("endpoint after sentinel matched")
	}
}

func TestAddEndpoint(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithMaxConversations(5))
	ep := &Endpoint{ID: 0x10, Profile: ProfileHomeAutomation}
	if err := d.AddEndpoint(ep); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if ep.State == nil || len(ep.State.slots()) != 5 {
		t.Fatalf("endpoint state not created with 5 slots")
	}
	if err := d.AddEndpoint(&Endpoint{ID: 0x10}); err == nil {
		t.Error("duplicate endpoint accepted")
	}
	if err := d.AddEndpoint(&Endpoint{ID: EndpointEnd}); !errors.Is(err, ErrInvalid) {
		t.Errorf("AddEndpoint(0xFF) = %v, want ErrInvalid", err)
	}
}

func TestEndpointOfCluster(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation, Clusters: []Cluster{{ID: 0x0006, Flags: ClusterFlagOutput}}},
		&Endpoint{ID: 0x02, Profile: ProfileHomeAutomation, Clusters: []Cluster{{ID: 0x0006, Flags: ClusterFlagInput}}},
	))
	if ep := d.EndpointOfCluster(ProfileHomeAutomation, 0x0006, ClusterFlagInput); ep == nil || ep.ID != 0x02 {
		t.Errorf("EndpointOfCluster(input) = %v, want endpoint 0x02", ep)
	}
	if ep := d.EndpointOfCluster(ProfileSmartEnergy, 0x0006, ClusterFlagInOut); ep != nil {
		t.Errorf("EndpointOfCluster(SE) = %v, want nil", ep)
	}
}

func TestDispatchCluster(t *testing.T) {
	var got *Envelope
	var fallback int
	ep := &Endpoint{
		ID:      0x01,
		Profile: ProfileHomeAutomation,
		Handler: EndpointHandlerFunc(func(env *Envelope, state *EndpointState) error {
			fallback++
			return nil
		}),
		Clusters: []Cluster{
			{ID: 0x0006, Flags: ClusterFlagInput, Handler: ClusterHandlerFunc(func(env *Envelope) error {
				got = env
				return nil
			})},
			{ID: 0x0008, Flags: ClusterFlagInput},
		},
	}
	d := NewDevice(&fakeRadio{}, WithEndpoints(ep))

	env := &Envelope{Dev: d, Profile: ProfileHomeAutomation, Cluster: 0x0006, DestEndpoint: 0x01}
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != env {
		t.Fatal("cluster handler not called")
	}
	if env.Options.ClusterFlags() != ClusterFlagInput {
		t.Errorf("options cluster flags = 0x%02X, want 0x%02X", env.Options.ClusterFlags(), ClusterFlagInput)
	}

	// cluster without handler falls back to the endpoint handler
	env = &Envelope{Dev: d, Profile: ProfileHomeAutomation, Cluster: 0x0008, DestEndpoint: 0x01}
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// unknown cluster also falls back
	env = &Envelope{Dev: d, Profile: ProfileHomeAutomation, Cluster: 0x0300, DestEndpoint: 0x01}
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if fallback != 2 {
		t.Errorf("endpoint handler calls = %d, want 2", fallback)
	}
}

func TestDispatchMisses(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation},
	))
	tests := []struct {
		name string
		env  *Envelope
		want error
	}{
		{"nil envelope", nil, ErrInvalid},
		{"unknown endpoint", &Envelope{Profile: ProfileHomeAutomation, DestEndpoint: 0x02}, ErrNotFound},
		{"wrong profile", &Envelope{Profile: ProfileSmartEnergy, DestEndpoint: 0x01}, ErrNotFound},
		{"no handlers", &Envelope{Profile: ProfileHomeAutomation, DestEndpoint: 0x01, Cluster: 6}, ErrNotFound},
		{"broadcast no profile", &Envelope{Profile: ProfileSmartEnergy, DestEndpoint: EndpointBroadcast}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Dispatch(tt.env); !errors.Is(err, tt.want) {
				t.Errorf("Dispatch = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDispatchBroadcastEndpoint(t *testing.T) {
	calls := map[uint8]int{}
	handler := func(id uint8, err error) EndpointHandler {
		return EndpointHandlerFunc(func(env *Envelope, state *EndpointState) error {
			calls[id]++
			if env.DestEndpoint != id {
				t.Errorf("endpoint 0x%02X saw DestEndpoint 0x%02X", id, env.DestEndpoint)
			}
			if env.Options&BroadcastEP == 0 {
				t.Errorf("endpoint 0x%02X: BroadcastEP not set", id)
			}
			if env.Options.ClusterFlags() != 0 {
				t.Errorf("endpoint 0x%02X: stale cluster flags 0x%02X", id, env.Options.ClusterFlags())
			}
			return err
		})
	}
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation, Clusters: []Cluster{{
			ID:    0x0006,
			Flags: ClusterFlagInput,
			Handler: ClusterHandlerFunc(func(env *Envelope) error {
				calls[0x01]++
				return ErrNotFound
			}),
		}}},
		&Endpoint{ID: 0x02, Profile: ProfileHomeAutomation, Handler: handler(0x02, nil)},
		&Endpoint{ID: 0x03, Profile: ProfileSmartEnergy, Handler: handler(0x03, nil)},
	))

	env := &Envelope{Dev: d, Profile: ProfileHomeAutomation, Cluster: 0x0006, DestEndpoint: EndpointBroadcast}
	if err := d.Dispatch(env); err != nil {
		t.Fatalf("Dispatch = %v, want nil (one endpoint accepted)", err)
	}
	if calls[0x01] != 1 || calls[0x02] != 1 {
		t.Errorf("calls = %v, want endpoints 1 and 2 once each", calls)
	}
	if calls[0x03] != 0 {
		t.Errorf("endpoint 3 (other profile) called %d times", calls[0x03])
	}
	if env.DestEndpoint != EndpointBroadcast {
		t.Errorf("DestEndpoint = 0x%02X after broadcast, want 0xFF", env.DestEndpoint)
	}
}

func TestDispatchBroadcastAllFail(t *testing.T) {
	fail := EndpointHandlerFunc(func(env *Envelope, state *EndpointState) error { return ErrNotFound })
	d := NewDevice(&fakeRadio{}, WithEndpoints(
		&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation, Handler: fail},
		&Endpoint{ID: 0x02, Profile: ProfileHomeAutomation, Handler: fail},
	))
	env := &Envelope{Profile: ProfileHomeAutomation, DestEndpoint: EndpointBroadcast}
	if err := d.Dispatch(env); !errors.Is(err, ErrNotFound) {
		t.Errorf("Dispatch = %v, want ErrNotFound", err)
	}
}

func TestDispatchEncryptionGate(t *testing.T) {
	tests := []struct {
		name     string
		flags    ClusterFlags
		options  Options
		wantCall bool
	}{
		{"encrypt, clear unicast", ClusterFlagEncrypt, 0, false},
		{"encrypt, clear broadcast", ClusterFlagEncrypt, BroadcastAddr, false},
		{"encrypt, encrypted", ClusterFlagEncrypt, RxAPSEncrypt, true},
		{"encrypt unicast, clear unicast", ClusterFlagEncryptUnicast, 0, false},
		{"encrypt unicast, clear broadcast", ClusterFlagEncryptUnicast, BroadcastAddr, true},
		{"encrypt unicast, encrypted", ClusterFlagEncryptUnicast, RxAPSEncrypt, true},
		{"not zcl bypasses gate", ClusterFlagEncrypt | ClusterFlagNotZCL, 0, true},
		{"no requirement", ClusterFlagNone, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called, invalid int
			ep := &Endpoint{ID: 0x01, Profile: ProfileHomeAutomation, Clusters: []Cluster{{
				ID:    0x0006,
				Flags: ClusterFlagInput | tt.flags,
				Handler: ClusterHandlerFunc(func(env *Envelope) error {
					called++
					return nil
				}),
			}}}
			d := NewDevice(&fakeRadio{}, WithEndpoints(ep),
				WithInvalidClusterHandler(ClusterHandlerFunc(func(env *Envelope) error {
					invalid++
					return nil
				})))
			env := &Envelope{Dev: d, Profile: ProfileHomeAutomation, Cluster: 0x0006, DestEndpoint: 0x01, Options: tt.options}
			if err := d.Dispatch(env); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if (called == 1) != tt.wantCall {
				t.Errorf("handler called %d times, want call %v", called, tt.wantCall)
			}
			if (invalid == 1) == tt.wantCall {
				t.Errorf("invalid cluster handler called %d times", invalid)
			}
		})
	}
}

func TestDispatchEncryptionGateNoHook(t *testing.T) {
	d := NewDevice(&fakeRadio{}, WithEndpoints(&Endpoint{ID: 0x01, Profile: ProfileHomeAutomation,
		Clusters: []Cluster{{ID: 0x0006, Flags: ClusterFlagInput | ClusterFlagEncrypt}}}))
	env := &Envelope{Profile: ProfileHomeAutomation, Cluster: 0x0006, DestEndpoint: 0x01}
	if err := d.Dispatch(env); !errors.Is(err, ErrEncryptionRequired) {
		t.Errorf("Dispatch = %v, want ErrEncryptionRequired", err)
	}
}

func TestConversationResponseLookup(t *testing.T) {
	ep := &Endpoint{ID: 0x00, Profile: ProfileZDO}
	d := NewDevice(&fakeRadio{}, WithEndpoints(ep))

	var got *Envelope
	id, err := ep.State.Register(func(conv *Conversation, env *Envelope) (ConversationStatus, error) {
		got = env
		return ConversationEnd, nil
	}, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := d.ConversationResponse(nil, id, nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("nil envelope: %v, want ErrInvalid", err)
	}
	env := &Envelope{Profile: ProfileHomeAutomation, DestEndpoint: 0x00}
	if err := d.ConversationResponse(nil, id, env); !errors.Is(err, ErrInvalid) {
		t.Errorf("no endpoint: %v, want ErrInvalid", err)
	}
	env = &Envelope{Profile: ProfileZDO, DestEndpoint: 0x00}
	if err := d.ConversationResponse(nil, id+1, env); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong id: %v, want ErrNotFound", err)
	}
	if err := d.ConversationResponse(nil, id, env); err != nil {
		t.Fatalf("ConversationResponse: %v", err)
	}
	if got != env {
		t.Error("handler did not receive envelope")
	}
}

func TestTickExpiresAfterFrames(t *testing.T) {
	clock := &manualClock{now: 100}
	radio := &fakeRadio{}
	ep := &Endpoint{ID: 0x00, Profile: ProfileZDO}
	d := NewDevice(radio, WithClock(clock), WithEndpoints(ep))

	var order []string
	id, err := ep.State.Register(func(conv *Conversation, env *Envelope) (ConversationStatus, error) {
		if env == nil {
			order = append(order, "timeout")
		} else {
			order = append(order, "response")
		}
		return ConversationEnd, nil
	}, 5)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// the response arrives during the tick in which the deadline passes
	clock.now = 105
	radio.onTick = func() {
		if err := ep.State.Respond(id, &Envelope{Profile: ProfileZDO}); err != nil {
			t.Errorf("Respond: %v", err)
		}
	}
	if err := d.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(order) != 1 || order[0] != "response" {
		t.Errorf("order = %v, want [response]", order)
	}
	if radio.ticks != 1 {
		t.Errorf("radio ticks = %d, want 1", radio.ticks)
	}
}

func TestTickLogsTimeoutHandlerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := &manualClock{now: 10}
	ep := &Endpoint{ID: 0x00, Profile: ProfileZDO}
	d := NewDevice(&fakeRadio{}, WithClock(clock), WithEndpoints(ep), WithLogger(logger))

	if _, err := ep.State.Register(func(*Conversation, *Envelope) (ConversationStatus, error) {
		return ConversationEnd, errors.New("store unavailable")
	}, 2); err != nil {
		t.Fatalf("Register: %v", err)
	}

	clock.now = 12
	if err := d.Tick(); err != nil {
		t.Fatalf("Tick = %v, want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "conversation timeout handler failed") || !strings.Contains(out, "store unavailable") {
		t.Errorf("log = %q", out)
	}
	if n := len(ep.State.Conversations()); n != 0 {
		t.Errorf("%d slots still held", n)
	}
}

func TestTickPassesRadioError(t *testing.T) {
	radio := &fakeRadio{tickErr: errors.New("busy")}
	d := NewDevice(radio)
	if err := d.Tick(); err != radio.tickErr {
		t.Errorf("Tick = %v, want radio error", err)
	}
	if err := NewDevice(nil).Tick(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Tick without radio = %v, want ErrInvalid", err)
	}
}

func TestFlagsAndAddress(t *testing.T) {
	d := NewDevice(nil)
	if a := d.Address(); a.Network != NetAddrUndefined || a.IEEE != Addr64Undefined {
		t.Errorf("initial address = %+v", a)
	}
	d.UpdateFlags(FlagJoined|FlagAuthenticated, 0)
	d.UpdateFlags(0, FlagAuthenticated)
	if f := d.Flags(); f != FlagJoined {
		t.Errorf("flags = 0x%04X, want 0x%04X", f, FlagJoined)
	}
	d.SetNetwork(0x1234)
	d.SetIEEE(Addr64{0x00, 0x13, 0xA2, 0x00, 0x40, 0x0A, 0x01, 0x27})
	if a := d.Address(); a.Network != 0x1234 || a.IEEE.Hex() != "0013A200400A0127" {
		t.Errorf("address = %+v", a)
	}
}

package wpan

import (
	"fmt"
	"io"
	"log/slog"

	"xbee-go-home/internal/syncutil"
)

// Radio is the transport below the application support layer.
type Radio interface {
	// EndpointSend transmits env.Payload to the envelope's address.
	EndpointSend(env *Envelope, flags SendFlags) error
	// Tick processes pending input, dispatching received envelopes back
	// into the device. It returns the number of frames handled.
	Tick() (int, error)
}

// Device owns the endpoint table and the local network state of one radio.
// Dispatch, Tick and the conversation calls must run on a single goroutine;
// flags and address may be read from any goroutine.
type Device struct {
	radio     Radio
	endpoints []*Endpoint
	clock     Clock
	logger    *slog.Logger

	invalidCluster ClusterHandler
	maxConv        int

	mu      syncutil.RWMutex
	flags   Flags
	address Address
}

// Option configures a Device.
type Option func(*Device)

// WithClock sets the clock used for conversation deadlines.
func WithClock(c Clock) Option {
	return func(d *Device) { d.clock = c }
}

// WithInvalidClusterHandler sets the handler called when a frame fails the
// encryption requirement of its cluster.
func WithInvalidClusterHandler(h ClusterHandler) Option {
	return func(d *Device) { d.invalidCluster = h }
}

// WithEndpoints installs the endpoint table.
func WithEndpoints(eps ...*Endpoint) Option {
	return func(d *Device) { d.endpoints = append(d.endpoints, eps...) }
}

// WithMaxConversations sets the slot count of endpoint states the device creates.
func WithMaxConversations(n int) Option {
	return func(d *Device) { d.maxConv = n }
}

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// NewDevice creates a device on top of radio. The radio may be set later
// with SetRadio when it needs the device to exist first.
func NewDevice(radio Radio, opts ...Option) *Device {
	d := &Device{
		radio: radio,
		address: Address{
			IEEE:    Addr64Undefined,
			Network: NetAddrUndefined,
		},
	}
	for _, o := range opts {
		o(d)
	}
	if d.clock == nil {
		d.clock = NewSystemClock()
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, ep := range d.endpoints {
		d.bind(ep)
	}
	return d
}

func (d *Device) bind(ep *Endpoint) {
	if ep.State == nil {
		ep.State = NewEndpointState(d.maxConv)
	}
	ep.State.SetClock(d.clock)
}

// SetRadio replaces the radio.
func (d *Device) SetRadio(r Radio) { d.radio = r }

// Radio returns the radio envelopes are sent through.
func (d *Device) Radio() Radio { return d.radio }

// Clock returns the device clock.
func (d *Device) Clock() Clock { return d.clock }

// AddEndpoint appends ep to the endpoint table.
func (d *Device) AddEndpoint(ep *Endpoint) error {
	if ep == nil || ep.ID == EndpointEnd {
		return ErrInvalid
	}
	if d.EndpointMatch(ep.ID, ProfileAny) != nil {
		return fmt.Errorf("endpoint 0x%02X: already registered", ep.ID)
	}
	d.bind(ep)
	d.endpoints = append(d.endpoints, ep)
	return nil
}

// Endpoints returns the endpoint table up to the EndpointEnd sentinel.
func (d *Device) Endpoints() []*Endpoint {
	for i, ep := range d.endpoints {
		if ep.ID == EndpointEnd {
			return d.endpoints[:i]
		}
	}
	return d.endpoints
}

// EndpointMatch returns the endpoint with the given id and profile.
// ProfileAny matches any profile.
func (d *Device) EndpointMatch(id uint8, profile uint16) *Endpoint {
	for _, ep := range d.Endpoints() {
		if ep.ID == id && (profile == ProfileAny || ep.Profile == profile) {
			return ep
		}
	}
	return nil
}

// EndpointOfCluster returns the first endpoint of profile with a cluster
// matching id and mask.
func (d *Device) EndpointOfCluster(profile, cluster uint16, mask ClusterFlags) *Endpoint {
	for _, ep := range d.Endpoints() {
		if ep.Profile != profile {
			continue
		}
		if ClusterMatch(cluster, mask, ep.Clusters) != nil {
			return ep
		}
	}
	return nil
}

// Dispatch routes a received envelope to its endpoint and cluster. An
// envelope for the broadcast endpoint is delivered to every endpoint with a
// matching profile and succeeds if any of them accepted it.
func (d *Device) Dispatch(env *Envelope) error {
	if env == nil {
		return ErrInvalid
	}
	if env.DestEndpoint != EndpointBroadcast {
		ep := d.EndpointMatch(env.DestEndpoint, env.Profile)
		if ep == nil {
			d.logger.Debug("no endpoint", "endpoint", fmt.Sprintf("0x%02X", env.DestEndpoint),
				"profile", fmt.Sprintf("0x%04X", env.Profile))
			return ErrNotFound
		}
		return d.dispatchEndpoint(env, ep)
	}

	env.Options |= BroadcastEP
	result := ErrNotFound
	for _, ep := range d.Endpoints() {
		if ep.Profile != env.Profile {
			continue
		}
		env.DestEndpoint = ep.ID
		env.Options &^= OptionsClusterFlags
		if err := d.dispatchEndpoint(env, ep); err == nil {
			result = nil
		}
	}
	env.DestEndpoint = EndpointBroadcast
	return result
}

func (d *Device) dispatchEndpoint(env *Envelope, ep *Endpoint) error {
	if c := ClusterMatch(env.Cluster, ClusterFlagInOut, ep.Clusters); c != nil {
		if encryptionRequired(env.Options, c.Flags) {
			d.logger.Debug("unencrypted frame for encrypted cluster",
				"endpoint", fmt.Sprintf("0x%02X", ep.ID), "cluster", fmt.Sprintf("0x%04X", c.ID))
			if d.invalidCluster != nil {
				return d.invalidCluster.HandleCluster(env)
			}
			return ErrEncryptionRequired
		}
		env.Options |= Options(c.Flags)
		if c.Handler != nil {
			return c.Handler.HandleCluster(env)
		}
	}
	if ep.Handler != nil {
		return ep.Handler.HandleEndpoint(env, ep.State)
	}
	return ErrNotFound
}

func encryptionRequired(opts Options, flags ClusterFlags) bool {
	if opts&RxAPSEncrypt != 0 || flags&ClusterFlagNotZCL != 0 {
		return false
	}
	if flags&ClusterFlagEncrypt != 0 {
		return true
	}
	return flags&ClusterFlagEncryptUnicast != 0 && opts&BroadcastAddr == 0
}

// ConversationResponse hands env to the conversation for transaction. With a
// nil state, the state of the envelope's destination endpoint is used.
func (d *Device) ConversationResponse(state *EndpointState, transaction uint8, env *Envelope) error {
	if env == nil {
		return ErrInvalid
	}
	if state == nil {
		ep := d.EndpointMatch(env.DestEndpoint, env.Profile)
		if ep == nil || ep.State == nil {
			return ErrInvalid
		}
		state = ep.State
	}
	return state.Respond(transaction, env)
}

// Tick lets the radio process received frames, then expires conversations
// whose deadline has passed. The radio's error is returned after expiry.
func (d *Device) Tick() error {
	if d.radio == nil {
		return ErrInvalid
	}
	_, err := d.radio.Tick()

	now := uint16(d.clock.Seconds())
	for _, ep := range d.Endpoints() {
		if xerr := ep.State.Expire(now); xerr != nil {
			d.logger.Debug("conversation timeout handler failed",
				"endpoint", fmt.Sprintf("0x%02X", ep.ID), "err", xerr)
		}
	}
	return err
}

// Flags returns the network flags.
func (d *Device) Flags() Flags {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flags
}

// UpdateFlags sets then clears the given flag bits.
func (d *Device) UpdateFlags(set, unset Flags) {
	d.mu.Lock()
	d.flags = (d.flags | set) &^ unset
	d.mu.Unlock()
}

// Address returns the local IEEE and network address.
func (d *Device) Address() Address {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.address
}

// SetNetwork sets the local network address.
func (d *Device) SetNetwork(addr uint16) {
	d.mu.Lock()
	d.address.Network = addr
	d.mu.Unlock()
}

// SetIEEE sets the local IEEE address.
func (d *Device) SetIEEE(addr Addr64) {
	d.mu.Lock()
	d.address.IEEE = addr
	d.mu.Unlock()
}

// Package stack runs an XBee radio, its application support layer and the
// ZDO and ZCL endpoints on one loop goroutine, and keeps the node store up
// to date from what it hears.
package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"xbee-go-home/internal/store"
	"xbee-go-home/internal/syncutil"
	"xbee-go-home/internal/wpan"
	"xbee-go-home/internal/xbee"
	"xbee-go-home/internal/zcl"
	"xbee-go-home/internal/zdo"
)

// DefaultTickInterval is how often the loop polls the radio.
const DefaultTickInterval = 20 * time.Millisecond

var (
	// ErrNotRunning is returned by calls that need the loop before Start or after Stop.
	ErrNotRunning = errors.New("stack: not running")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("stack: already started")
)

// Config holds stack configuration. With Interview set, every node that
// announces itself is asked for its endpoints and simple descriptors.
// Observer, if set, sees every frame read from or written to the radio.
// A nil Clock means the system clock drives conversation deadlines.
type Config struct {
	TickInterval     time.Duration
	FlowControl      bool
	MaxConversations int
	Interview        bool
	Endpoints        []EndpointConfig
	Observer         xbee.FrameObserver
	Clock            wpan.Clock
}

// EndpointConfig describes a local ZCL endpoint.
type EndpointConfig struct {
	ID            uint8
	Profile       uint16
	DeviceID      uint16
	DeviceVersion uint8
	Clusters      []ClusterConfig
}

// ClusterConfig is one cluster of a local endpoint.
type ClusterConfig struct {
	ID    uint16
	Flags wpan.ClusterFlags
}

// Counters count radio traffic since New.
type Counters struct {
	FramesIn  uint64 `json:"frames_in"`
	FramesOut uint64 `json:"frames_out"`
	Envelopes uint64 `json:"envelopes"`
	TxSuccess uint64 `json:"tx_success"`
	TxFailed  uint64 `json:"tx_failed"`
	Timeouts  uint64 `json:"timeouts"`
}

// Status is a snapshot of the local radio.
type Status struct {
	IEEE          string   `json:"ieee"`
	Network       uint16   `json:"network"`
	Joined        bool     `json:"joined"`
	Authenticated bool     `json:"authenticated"`
	ModemStatus   string   `json:"modem_status"`
	Running       bool     `json:"running"`
	Counters      Counters `json:"counters"`
}

// Stack owns the radio and everything layered on it.
type Stack struct {
	radio    *xbee.Device
	dev      *wpan.Device
	zdo      *zdo.Handler
	store    store.Store
	events   *EventBus
	registry *zcl.Registry
	logger   *slog.Logger
	config   Config
	now      func() time.Time

	requests chan func()
	cancel   context.CancelFunc
	done     chan struct{}

	// loop only
	ieeeHigh, ieeeLow uint32
	haveHigh, haveLow bool
	lastTickErr       string

	mu       syncutil.RWMutex
	counters Counters
	running  bool
}

// New builds the radio, the endpoint table and the frame table on port.
func New(port xbee.Port, st store.Store, events *EventBus, cfg Config, logger *slog.Logger) (*Stack, error) {
	if port == nil || st == nil {
		return nil, fmt.Errorf("stack: port and store are required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if events == nil {
		events = NewEventBus(logger)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	s := &Stack{
		store:    st,
		events:   events,
		registry: zcl.NewStandardRegistry(logger),
		logger:   logger.With("component", "stack"),
		config:   cfg,
		now:      time.Now,
		requests: make(chan func()),
	}

	s.zdo = zdo.NewHandler(logger)
	s.zdo.OnAnnounce = s.onAnnounce

	opts := []wpan.Option{
		wpan.WithLogger(logger),
		wpan.WithMaxConversations(cfg.MaxConversations),
		wpan.WithInvalidClusterHandler(zcl.InvalidClusterHandler),
		wpan.WithEndpoints(zdo.Endpoint(s.zdo), s.digiDataEndpoint()),
	}
	if cfg.Clock != nil {
		opts = append(opts, wpan.WithClock(cfg.Clock))
	}
	s.dev = wpan.NewDevice(nil, opts...)
	for _, epc := range cfg.Endpoints {
		if err := s.dev.AddEndpoint(s.zclEndpoint(epc)); err != nil {
			return nil, fmt.Errorf("stack: endpoint 0x%02X: %w", epc.ID, err)
		}
	}

	s.radio = xbee.NewDevice(port, logger,
		xbee.WithWPAN(s.dev),
		xbee.WithFlowControl(cfg.FlowControl),
		xbee.WithFrameObserver(s.observe),
		xbee.WithFrameHandlers(
			xbee.DispatchEntry{FrameType: xbee.FrameReceiveExplicit, Handler: xbee.ReceiveExplicitHandler{OnEnvelope: s.onEnvelope}},
			xbee.DispatchEntry{FrameType: xbee.FrameModemStatus, Handler: xbee.FrameHandlerFunc(s.handleModemStatus)},
			xbee.DispatchEntry{FrameType: xbee.FrameTransmitStatus, Handler: xbee.FrameHandlerFunc(s.handleTransmitStatus)},
			xbee.DispatchEntry{FrameType: xbee.FrameLocalATResponse, Handler: xbee.FrameHandlerFunc(s.handleATResponse)},
			xbee.DispatchEntry{FrameType: xbee.FrameNodeID, Handler: xbee.FrameHandlerFunc(s.handleNodeIDFrame)},
		),
	)
	s.dev.SetRadio(s.radio)
	return s, nil
}

func (s *Stack) digiDataEndpoint() *wpan.Endpoint {
	return &wpan.Endpoint{
		ID:      wpan.EndpointDigiData,
		Profile: wpan.ProfileDigi,
		Clusters: []wpan.Cluster{{
			ID:      wpan.ClusterDigiSerial,
			Flags:   wpan.ClusterFlagInput | wpan.ClusterFlagNotZCL,
			Handler: wpan.ClusterHandlerFunc(s.handleSerial),
		}, {
			ID:      wpan.ClusterDigiNodeID,
			Flags:   wpan.ClusterFlagInput | wpan.ClusterFlagNotZCL,
			Handler: wpan.ClusterHandlerFunc(s.handleNodeIDCluster),
		}},
	}
}

func (s *Stack) zclEndpoint(epc EndpointConfig) *wpan.Endpoint {
	ep := &wpan.Endpoint{
		ID:            epc.ID,
		Profile:       epc.Profile,
		DeviceID:      epc.DeviceID,
		DeviceVersion: epc.DeviceVersion,
		Handler:       zcl.InvalidClusterEndpoint,
	}
	for _, c := range epc.Clusters {
		ep.Clusters = append(ep.Clusters, wpan.Cluster{
			ID:      c.ID,
			Flags:   c.Flags,
			Handler: wpan.ClusterHandlerFunc(s.handleCluster),
		})
	}
	return ep
}

// Events returns the event bus.
func (s *Stack) Events() *EventBus { return s.events }

// Registry returns the ZCL cluster registry used to name commands.
func (s *Stack) Registry() *zcl.Registry { return s.registry }

// Store returns the node store.
func (s *Stack) Store() store.Store { return s.store }

// Device returns the application support layer. Its dispatch and
// conversation calls must run inside Do.
func (s *Stack) Device() *wpan.Device { return s.dev }

// Start launches the loop and queries the radio's addresses.
func (s *Stack) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.done != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.loop(loopCtx)

	err := s.Do(ctx, func() error {
		for _, cmd := range []string{"SH", "SL", "MY"} {
			if _, err := s.radio.SendATCommand(cmd, nil); err != nil {
				return fmt.Errorf("AT%s: %w", cmd, err)
			}
		}
		return nil
	})
	if err != nil {
		s.Stop()
		return fmt.Errorf("stack start: %w", err)
	}
	s.logger.Info("stack started", "tick", s.config.TickInterval, "endpoints", len(s.dev.Endpoints()))
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (s *Stack) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Stack) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.requests:
			fn()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Stack) tick() {
	err := s.dev.Tick()
	if err == nil {
		s.lastTickErr = ""
		return
	}
	// an unplugged port fails every tick; report each new error once
	if msg := err.Error(); msg != s.lastTickErr {
		s.lastTickErr = msg
		s.logger.Warn("radio tick", "err", err)
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (s *Stack) Do(ctx context.Context, fn func() error) error {
	s.mu.RLock()
	done, running := s.done, s.running
	s.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	errc := make(chan error, 1)
	select {
	case s.requests <- func() { errc <- fn() }:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the local radio.
func (s *Stack) Status() Status {
	addr := s.dev.Address()
	flags := s.dev.Flags()
	st := Status{
		Network:       addr.Network,
		Joined:        flags&wpan.FlagJoined != 0,
		Authenticated: flags&wpan.FlagAuthenticated != 0,
		ModemStatus:   "unknown",
	}
	if addr.IEEE != wpan.Addr64Undefined {
		st.IEEE = addr.IEEE.Hex()
	}
	if ms := s.radio.ModemStatus(); ms >= 0 {
		st.ModemStatus = xbee.ModemStatusName(uint8(ms))
	}
	s.mu.RLock()
	st.Running = s.running
	st.Counters = s.counters
	s.mu.RUnlock()
	return st
}

func (s *Stack) count(fn func(c *Counters)) {
	s.mu.Lock()
	fn(&s.counters)
	s.mu.Unlock()
}

func (s *Stack) observe(outbound bool, frame []byte) {
	s.count(func(c *Counters) {
		if outbound {
			c.FramesOut++
		} else {
			c.FramesIn++
		}
	})
	if s.config.Observer != nil {
		s.config.Observer(outbound, frame)
	}
}

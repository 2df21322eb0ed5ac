package stack

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"xbee-go-home/internal/wpan"
)

// Event types
const (
	EventEnvelope         = "envelope"
	EventModemStatus      = "modem_status"
	EventTransmitStatus   = "transmit_status"
	EventNodeAnnounce     = "node_announce"
	EventNodeDiscovered   = "node_discovered"
	EventActiveEndpoints  = "active_endpoints"
	EventSimpleDescriptor = "simple_descriptor"
	EventRequestTimeout   = "request_timeout"
	EventSerialData       = "serial_data"
	EventClusterCommand   = "cluster_command"
)

// Event represents a stack event.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus provides pub/sub for stack events.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[string]map[uint64]EventHandler
	allHandlers map[uint64]EventHandler
	nextID      uint64
	logger      *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EventBus{
		handlers:    make(map[string]map[uint64]EventHandler),
		allHandlers: make(map[uint64]EventHandler),
		logger:      logger,
	}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[uint64]EventHandler)
	}
	eb.handlers[eventType][id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.handlers[eventType], id)
	}
}

// OnAll registers a handler that receives all events.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.allHandlers[id] = handler
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.allHandlers, id)
	}
}

// Emit sends an event to all matching handlers.
// Handlers are called synchronously, on the stack loop for radio events,
// so they must not block. A panicking handler is recovered.
func (eb *EventBus) Emit(event Event) {
	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[event.Type])+len(eb.allHandlers))
	for _, h := range eb.handlers[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range eb.allHandlers {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
				}
			}()
			h(event)
		}()
	}
}

// EnvelopeData describes a received envelope. Payload is hex encoded.
type EnvelopeData struct {
	IEEE           string `json:"ieee"`
	Network        uint16 `json:"network"`
	SourceEndpoint uint8  `json:"src_endpoint"`
	DestEndpoint   uint8  `json:"dst_endpoint"`
	Profile        uint16 `json:"profile"`
	Cluster        uint16 `json:"cluster"`
	Broadcast      bool   `json:"broadcast"`
	Encrypted      bool   `json:"encrypted"`
	Payload        string `json:"payload"`
}

// NewEnvelopeData copies the addressing and payload of env.
func NewEnvelopeData(env *wpan.Envelope) EnvelopeData {
	return EnvelopeData{
		IEEE:           env.IEEE.Hex(),
		Network:        env.Network,
		SourceEndpoint: env.SourceEndpoint,
		DestEndpoint:   env.DestEndpoint,
		Profile:        env.Profile,
		Cluster:        env.Cluster,
		Broadcast:      env.Options.IsBroadcast(),
		Encrypted:      env.Options&wpan.RxAPSEncrypt != 0,
		Payload:        hex.EncodeToString(env.Payload),
	}
}

// ModemStatusData is the payload of EventModemStatus.
type ModemStatusData struct {
	Status uint8  `json:"status"`
	Name   string `json:"name"`
}

// NodeData identifies a remote node in events.
type NodeData struct {
	IEEE    string `json:"ieee"`
	Network uint16 `json:"network"`
}

// AnnounceData is the payload of EventNodeAnnounce.
type AnnounceData struct {
	NodeData
	Capability uint8 `json:"capability"`
}

// NodeDiscoveredData is the payload of EventNodeDiscovered.
type NodeDiscoveredData struct {
	NodeData
	Parent     uint16 `json:"parent"`
	DeviceType string `json:"device_type"`
	Identifier string `json:"identifier"`
}

// ActiveEndpointsData is the payload of EventActiveEndpoints.
type ActiveEndpointsData struct {
	NodeData
	Status    uint8   `json:"status"`
	Endpoints []uint8 `json:"endpoints"`
}

// SimpleDescriptorData is the payload of EventSimpleDescriptor.
type SimpleDescriptorData struct {
	NodeData
	Status        uint8    `json:"status"`
	Endpoint      uint8    `json:"endpoint"`
	ProfileID     uint16   `json:"profile_id"`
	DeviceID      uint16   `json:"device_id"`
	DeviceVersion uint8    `json:"device_version"`
	InClusters    []uint16 `json:"in_clusters"`
	OutClusters   []uint16 `json:"out_clusters"`
}

// RequestTimeoutData is the payload of EventRequestTimeout.
type RequestTimeoutData struct {
	NodeData
	Request     string `json:"request"`
	Transaction uint8  `json:"transaction"`
}

// SerialData is the payload of EventSerialData.
type SerialData struct {
	NodeData
	Data string `json:"data"`
}

// ClusterCommandData is the payload of EventClusterCommand.
type ClusterCommandData struct {
	EnvelopeData
	ClusterName     string `json:"cluster_name"`
	Command         uint8  `json:"command"`
	CommandName     string `json:"command_name"`
	Sequence        uint8  `json:"sequence"`
	ClusterSpecific bool   `json:"cluster_specific"`
	FromServer      bool   `json:"from_server"`
	Args            string `json:"args"`
}

func nodeData(ieee wpan.Addr64, network uint16) NodeData {
	return NodeData{IEEE: ieee.Hex(), Network: network}
}

func hexAddr(v uint16) string {
	return fmt.Sprintf("0x%04X", v)
}

package stack

import (
	"context"
	"encoding/hex"
	"fmt"

	"xbee-go-home/internal/store"
	"xbee-go-home/internal/wpan"
	"xbee-go-home/internal/zdo"
)

// SendRequest is an envelope to transmit, as accepted from the web API,
// MQTT and scripts. Payload is hex encoded. A nil Network sends to the
// undefined address, which makes the radio discover it from IEEE.
type SendRequest struct {
	IEEE           string  `json:"ieee"`
	Network        *uint16 `json:"network,omitempty"`
	SourceEndpoint uint8   `json:"src_endpoint"`
	DestEndpoint   uint8   `json:"dst_endpoint"`
	Profile        uint16  `json:"profile"`
	Cluster        uint16  `json:"cluster"`
	Payload        string  `json:"payload"`
	Encrypted      bool    `json:"encrypted"`
}

// Envelope validates r and builds the envelope it describes on dev.
// A zero source endpoint picks the first local endpoint of the profile.
func (r SendRequest) Envelope(dev *wpan.Device) (*wpan.Envelope, error) {
	ieee, err := wpan.ParseAddr64(r.IEEE)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wpan.ErrInvalid, err)
	}
	payload, err := hex.DecodeString(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", wpan.ErrInvalid, err)
	}
	network := wpan.NetAddrUndefined
	if r.Network != nil {
		network = *r.Network
	}

	env := wpan.NewEnvelope(dev, ieee, network)
	env.SourceEndpoint = r.SourceEndpoint
	env.DestEndpoint = r.DestEndpoint
	env.Profile = r.Profile
	env.Cluster = r.Cluster
	env.Payload = payload
	if env.SourceEndpoint == 0 && env.Profile != wpan.ProfileZDO {
		ep := firstEndpoint(dev, r.Profile)
		if ep == nil {
			return nil, fmt.Errorf("%w: no local endpoint for profile 0x%04X", wpan.ErrInvalid, r.Profile)
		}
		env.SourceEndpoint = ep.ID
	}
	return env, nil
}

func firstEndpoint(dev *wpan.Device, profile uint16) *wpan.Endpoint {
	for _, ep := range dev.Endpoints() {
		if ep.Profile == profile && ep.ID != wpan.EndpointZDO {
			return ep
		}
	}
	return nil
}

// Send transmits r from the loop goroutine.
func (s *Stack) Send(ctx context.Context, r SendRequest) error {
	env, err := r.Envelope(s.dev)
	if err != nil {
		return err
	}
	var flags wpan.SendFlags
	if r.Encrypted {
		flags |= wpan.SendEncrypted
	}
	return s.Do(ctx, func() error {
		return s.radio.EndpointSend(env, flags)
	})
}

// DiscoverNodes starts an ATND node discovery, optionally limited to the
// node with the given identifier. Each answer updates the store and emits
// EventNodeDiscovered.
func (s *Stack) DiscoverNodes(ctx context.Context, identifier string) (uint8, error) {
	var frameID uint8
	err := s.Do(ctx, func() error {
		var err error
		frameID, err = s.radio.DiscoverNodes(identifier)
		return err
	})
	return frameID, err
}

// RequestActiveEndpoints asks a node for its active endpoints and returns
// the request's transaction id. The answer updates the store and emits
// EventActiveEndpoints.
func (s *Stack) RequestActiveEndpoints(ctx context.Context, ieee wpan.Addr64, network uint16) (uint8, error) {
	var trans uint8
	err := s.Do(ctx, func() error {
		var err error
		trans, err = s.requestActiveEndpoints(ieee, network, false)
		return err
	})
	return trans, err
}

// RequestSimpleDescriptor asks a node for the simple descriptor of ep. The
// answer updates the store and emits EventSimpleDescriptor.
func (s *Stack) RequestSimpleDescriptor(ctx context.Context, ieee wpan.Addr64, network uint16, ep uint8) (uint8, error) {
	var trans uint8
	err := s.Do(ctx, func() error {
		var err error
		trans, err = s.requestSimpleDescriptor(ieee, network, ep, nil)
		return err
	})
	return trans, err
}

// Bind asks the source node of r to bind its cluster to the destination.
// The node's address is taken from r.SrcIEEE and network.
func (s *Stack) Bind(ctx context.Context, network uint16, r zdo.BindRequest) (uint8, error) {
	return s.bindRequest(ctx, zdo.ClusterBindReq, network, r)
}

// Unbind removes a binding made by Bind.
func (s *Stack) Unbind(ctx context.Context, network uint16, r zdo.BindRequest) (uint8, error) {
	return s.bindRequest(ctx, zdo.ClusterUnbindReq, network, r)
}

func (s *Stack) bindRequest(ctx context.Context, cluster, network uint16, r zdo.BindRequest) (uint8, error) {
	var trans uint8
	err := s.Do(ctx, func() error {
		env := wpan.NewEnvelope(s.dev, r.SrcIEEE, network)
		var err error
		trans, err = zdo.Request(env, cluster, r.Bytes(), func(conv *wpan.Conversation, rsp *wpan.Envelope) (wpan.ConversationStatus, error) {
			if rsp == nil {
				s.requestTimedOut(r.SrcIEEE, network, cluster, conv.TransactionID)
				return wpan.ConversationEnd, nil
			}
			if len(rsp.Payload) < 2 {
				return wpan.ConversationEnd, zdo.ErrBadMessage
			}
			s.logger.Info("bind response",
				"request", zdo.ClusterName(cluster),
				"ieee", r.SrcIEEE.String(),
				"cluster", s.registry.ClusterName(r.ClusterID),
				"status", fmt.Sprintf("0x%02X", rsp.Payload[1]))
			return wpan.ConversationEnd, nil
		})
		return err
	})
	return trans, err
}

func (s *Stack) requestActiveEndpoints(ieee wpan.Addr64, network uint16, interview bool) (uint8, error) {
	env := wpan.NewEnvelope(s.dev, ieee, network)
	return zdo.Request(env, zdo.ClusterActiveEPReq, zdo.ActiveEndpointsRequest(network),
		func(conv *wpan.Conversation, rsp *wpan.Envelope) (wpan.ConversationStatus, error) {
			if rsp == nil {
				s.requestTimedOut(ieee, network, zdo.ClusterActiveEPReq, conv.TransactionID)
				return wpan.ConversationEnd, nil
			}
			r, err := zdo.ParseActiveEndpoints(rsp.Payload)
			if err != nil {
				return wpan.ConversationEnd, err
			}
			s.events.Emit(Event{Type: EventActiveEndpoints, Data: ActiveEndpointsData{
				NodeData:  nodeData(ieee, r.Network),
				Status:    r.Status,
				Endpoints: r.Endpoints,
			}})
			if r.Status != zdo.StatusSuccess {
				return wpan.ConversationEnd, nil
			}
			s.touchNode(ieee, r.Network, func(n *store.Node) {
				n.Endpoints = keepEndpoints(n.Endpoints, r.Endpoints)
			})
			if interview && len(r.Endpoints) > 0 {
				if _, err := s.requestSimpleDescriptor(ieee, r.Network, r.Endpoints[0], r.Endpoints[1:]); err != nil {
					s.logger.Warn("interview", "ieee", ieee.String(), "err", err)
				}
			}
			return wpan.ConversationEnd, nil
		})
}

// keepEndpoints drops stored endpoints that are no longer active and adds
// placeholders for new ones.
func keepEndpoints(have []store.Endpoint, active []uint8) []store.Endpoint {
	out := make([]store.Endpoint, 0, len(active))
	for _, id := range active {
		ep := store.Endpoint{ID: id}
		for _, h := range have {
			if h.ID == id {
				ep = h
				break
			}
		}
		out = append(out, ep)
	}
	return out
}

// requestSimpleDescriptor asks for the descriptor of ep; when the answer
// arrives the endpoints in next are requested one at a time.
func (s *Stack) requestSimpleDescriptor(ieee wpan.Addr64, network uint16, ep uint8, next []uint8) (uint8, error) {
	body, err := zdo.SimpleDescriptorRequest(network, ep)
	if err != nil {
		return 0, err
	}
	env := wpan.NewEnvelope(s.dev, ieee, network)
	return zdo.Request(env, zdo.ClusterSimpleDescReq, body,
		func(conv *wpan.Conversation, rsp *wpan.Envelope) (wpan.ConversationStatus, error) {
			if rsp == nil {
				s.requestTimedOut(ieee, network, zdo.ClusterSimpleDescReq, conv.TransactionID)
				return wpan.ConversationEnd, nil
			}
			sd, err := zdo.ParseSimpleDescriptor(rsp.Payload)
			if err != nil {
				return wpan.ConversationEnd, err
			}
			s.events.Emit(Event{Type: EventSimpleDescriptor, Data: SimpleDescriptorData{
				NodeData:      nodeData(ieee, sd.Network),
				Status:        sd.Status,
				Endpoint:      sd.Endpoint,
				ProfileID:     sd.ProfileID,
				DeviceID:      sd.DeviceID,
				DeviceVersion: sd.DeviceVersion,
				InClusters:    sd.InClusters,
				OutClusters:   sd.OutClusters,
			}})
			if sd.Status == zdo.StatusSuccess {
				s.touchNode(ieee, sd.Network, func(n *store.Node) {
					n.SetEndpoint(store.Endpoint{
						ID:            sd.Endpoint,
						ProfileID:     sd.ProfileID,
						DeviceID:      sd.DeviceID,
						DeviceVersion: sd.DeviceVersion,
						InClusters:    sd.InClusters,
						OutClusters:   sd.OutClusters,
					})
				})
			}
			if len(next) > 0 {
				if _, err := s.requestSimpleDescriptor(ieee, network, next[0], next[1:]); err != nil {
					s.logger.Warn("interview", "ieee", ieee.String(), "endpoint", next[0], "err", err)
				}
			}
			return wpan.ConversationEnd, nil
		})
}

func (s *Stack) requestTimedOut(ieee wpan.Addr64, network, cluster uint16, trans uint8) {
	s.count(func(c *Counters) { c.Timeouts++ })
	s.logger.Debug("zdo request timed out",
		"request", zdo.ClusterName(cluster),
		"ieee", ieee.String(),
		"trans", trans)
	s.events.Emit(Event{Type: EventRequestTimeout, Data: RequestTimeoutData{
		NodeData:    nodeData(ieee, network),
		Request:     zdo.ClusterName(cluster),
		Transaction: trans,
	}})
}

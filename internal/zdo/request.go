package zdo

import (
	"encoding/binary"
	"fmt"

	"xbee-go-home/internal/wpan"
)

// State returns the conversation state of dev's ZDO endpoint.
func State(dev *wpan.Device) (*wpan.EndpointState, error) {
	if dev == nil {
		return nil, ErrInvalid
	}
	ep := dev.EndpointMatch(wpan.EndpointZDO, wpan.ProfileZDO)
	if ep == nil || ep.State == nil {
		return nil, fmt.Errorf("zdo endpoint: %w", wpan.ErrNotFound)
	}
	return ep.State, nil
}

// Request sends a ZDO request for cluster to the node addressed by env and
// registers handler for the response. body follows the transaction byte.
// With a nil handler no conversation is held; a fresh transaction id is
// still used. The transaction id is returned.
func Request(env *wpan.Envelope, cluster uint16, body []byte, handler wpan.ResponseHandler) (uint8, error) {
	if env == nil || IsResponse(cluster) {
		return 0, ErrInvalid
	}
	state, err := State(env.Dev)
	if err != nil {
		return 0, err
	}
	trans, err := state.Register(handler, ConversationTimeout)
	if err != nil {
		return 0, err
	}

	req := *env
	req.Profile = wpan.ProfileZDO
	req.SourceEndpoint = wpan.EndpointZDO
	req.DestEndpoint = wpan.EndpointZDO
	req.Cluster = cluster
	req.Payload = append([]byte{trans}, body...)
	if err := req.Send(); err != nil {
		state.Cancel(trans)
		return 0, err
	}
	return trans, nil
}

// ActiveEndpointsRequest is the body of an Active_EP_req for network.
func ActiveEndpointsRequest(network uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, network)
}

// SimpleDescriptorRequest is the body of a Simple_Desc_req for endpoint ep of network.
func SimpleDescriptorRequest(network uint16, ep uint8) ([]byte, error) {
	if ep == 0 || ep == 0xFF {
		return nil, fmt.Errorf("%w: endpoint %d", ErrInvalid, ep)
	}
	return append(binary.LittleEndian.AppendUint16(nil, network), ep), nil
}

// IEEEAddressRequest is the body of a single-device IEEE_addr_req for network.
func IEEEAddressRequest(network uint16) []byte {
	return append(binary.LittleEndian.AppendUint16(nil, network), 0x00, 0x00)
}

// BindRequest binds a source endpoint and cluster to a destination device endpoint.
type BindRequest struct {
	SrcIEEE   wpan.Addr64
	SrcEP     uint8
	ClusterID uint16
	DstIEEE   wpan.Addr64
	DstEP     uint8
}

const bindDstModeIEEE uint8 = 0x03

// Bytes encodes the request in Bind_req order, addresses little-endian.
func (r BindRequest) Bytes() []byte {
	src, dst := reverse(r.SrcIEEE), reverse(r.DstIEEE)
	b := make([]byte, 0, 21)
	b = append(b, src[:]...)
	b = append(b, r.SrcEP)
	b = binary.LittleEndian.AppendUint16(b, r.ClusterID)
	b = append(b, bindDstModeIEEE)
	b = append(b, dst[:]...)
	return append(b, r.DstEP)
}

// Header is the transaction, status and network address that start most
// descriptor responses.
type Header struct {
	Transaction uint8  `json:"transaction"`
	Status      uint8  `json:"status"`
	Network     uint16 `json:"network"`
}

func parseHeader(p []byte, what string) (Header, []byte, error) {
	if len(p) < 4 {
		return Header{}, nil, fmt.Errorf("%w: %s of %d bytes", ErrBadMessage, what, len(p))
	}
	return Header{
		Transaction: p[0],
		Status:      p[1],
		Network:     binary.LittleEndian.Uint16(p[2:4]),
	}, p[4:], nil
}

// ActiveEndpoints is a decoded Active_EP_rsp.
type ActiveEndpoints struct {
	Header
	Endpoints []uint8 `json:"endpoints"`
}

// ParseActiveEndpoints decodes an Active_EP_rsp payload.
func ParseActiveEndpoints(p []byte) (ActiveEndpoints, error) {
	h, rest, err := parseHeader(p, "active_ep_rsp")
	if err != nil {
		return ActiveEndpoints{}, err
	}
	r := ActiveEndpoints{Header: h}
	if h.Status != StatusSuccess {
		return r, nil
	}
	if len(rest) < 1 || len(rest) < 1+int(rest[0]) {
		return r, fmt.Errorf("%w: active_ep_rsp endpoint list truncated", ErrBadMessage)
	}
	r.Endpoints = append([]uint8(nil), rest[1:1+int(rest[0])]...)
	return r, nil
}

// SimpleDescriptor is a decoded Simple_Desc_rsp.
type SimpleDescriptor struct {
	Header
	Endpoint      uint8    `json:"endpoint"`
	ProfileID     uint16   `json:"profile_id"`
	DeviceID      uint16   `json:"device_id"`
	DeviceVersion uint8    `json:"device_version"`
	InClusters    []uint16 `json:"in_clusters"`
	OutClusters   []uint16 `json:"out_clusters"`
}

// ParseSimpleDescriptor decodes a Simple_Desc_rsp payload.
func ParseSimpleDescriptor(p []byte) (SimpleDescriptor, error) {
	h, rest, err := parseHeader(p, "simple_desc_rsp")
	if err != nil {
		return SimpleDescriptor{}, err
	}
	sd := SimpleDescriptor{Header: h}
	if h.Status != StatusSuccess {
		return sd, nil
	}
	if len(rest) < 1 || len(rest) < 1+int(rest[0]) || rest[0] < 8 {
		return sd, fmt.Errorf("%w: simple descriptor truncated", ErrBadMessage)
	}
	d := rest[1 : 1+int(rest[0])]
	sd.Endpoint = d[0]
	sd.ProfileID = binary.LittleEndian.Uint16(d[1:3])
	sd.DeviceID = binary.LittleEndian.Uint16(d[3:5])
	sd.DeviceVersion = d[5]
	if sd.InClusters, d, err = readClusters(d[6:]); err != nil {
		return sd, err
	}
	if sd.OutClusters, _, err = readClusters(d); err != nil {
		return sd, err
	}
	return sd, nil
}

// ParseAnnounce decodes a Device_annce payload.
func ParseAnnounce(p []byte) (Announce, error) {
	var a Announce
	if len(p) < 12 {
		return a, fmt.Errorf("%w: device_annce of %d bytes", ErrBadMessage, len(p))
	}
	a.Network = binary.LittleEndian.Uint16(p[1:3])
	for i := 0; i < 8; i++ {
		a.IEEE[i] = p[10-i]
	}
	a.Capability = p[11]
	return a, nil
}

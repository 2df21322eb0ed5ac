package zdo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"xbee-go-home/internal/wpan"
)

// maxDescriptorClusters is the number of cluster IDs that fit in a Simple_Desc response.
const maxDescriptorClusters = 39

// Announce is a Device_annce received from a node joining or rejoining.
type Announce struct {
	IEEE       wpan.Addr64
	Network    uint16
	Capability uint8
}

// Handler answers frames received on the ZDO endpoint.
type Handler struct {
	// OnAnnounce, if set, is called for every Device_annce.
	OnAnnounce func(Announce)

	logger *slog.Logger
}

// NewHandler creates a ZDO endpoint handler.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{logger: logger.With("component", "zdo")}
}

// HandleEndpoint implements wpan.EndpointHandler.
func (h *Handler) HandleEndpoint(env *wpan.Envelope, state *wpan.EndpointState) error {
	if env == nil || env.Dev == nil || len(env.Payload) == 0 {
		return ErrInvalid
	}
	transaction := env.Payload[0]
	h.logger.Debug("zdo frame",
		"cluster", ClusterName(env.Cluster),
		"trans", transaction,
		"from", fmt.Sprintf("0x%04X", env.Network))

	switch env.Cluster {
	case ClusterSimpleDescReq:
		return h.simpleDescRespond(env)
	case ClusterActiveEPReq:
		return h.activeEPRespond(env)
	case ClusterMatchDescReq:
		return h.matchDescRespond(env)
	case ClusterDeviceAnnce:
		a, err := ParseAnnounce(env.Payload)
		if err != nil {
			return err
		}
		h.logger.Debug("device announce",
			"ieee", a.IEEE.String(),
			"short", fmt.Sprintf("0x%04X", a.Network),
			"capability", fmt.Sprintf("0x%02X", a.Capability))
		if h.OnAnnounce != nil {
			h.OnAnnounce(a)
		}
		// Device_annce has no response
		return nil
	}

	if IsResponse(env.Cluster) {
		err := env.Dev.ConversationResponse(state, transaction, env)
		if !errors.Is(err, wpan.ErrNotFound) {
			return err
		}
		h.logger.Debug("unmatched zdo response", "trans", transaction)
		return nil
	}

	// unsupported broadcast requests are dropped
	if env.Options&wpan.BroadcastAddr != 0 {
		return nil
	}
	return SendResponse(env, []byte{transaction, StatusNotSupported})
}

// SendResponse replies to req with payload on the matching response cluster.
func SendResponse(req *wpan.Envelope, payload []byte) error {
	reply, err := req.Reply()
	if err != nil {
		return err
	}
	reply.Cluster |= ResponseMask
	reply.Payload = payload
	return reply.Send()
}

func localNetwork(env *wpan.Envelope) (uint16, error) {
	if env.Dev == nil {
		return 0, ErrInvalid
	}
	network := env.Dev.Address().Network
	if network == wpan.NetAddrUndefined {
		return 0, ErrNoAddress
	}
	return network, nil
}

// activeEPRespond answers Active_EP_req with every endpoint but ZDO.
func (h *Handler) activeEPRespond(env *wpan.Envelope) error {
	network, err := localNetwork(env)
	if err != nil {
		return err
	}
	rsp := []byte{env.Payload[0], StatusSuccess, 0, 0, 0}
	binary.LittleEndian.PutUint16(rsp[2:4], network)
	for _, ep := range env.Dev.Endpoints() {
		if ep.ID != wpan.EndpointZDO {
			rsp = append(rsp, ep.ID)
		}
	}
	rsp[4] = uint8(len(rsp) - 5)
	return SendResponse(env, rsp)
}

// simpleDescRespond answers Simple_Desc_req. Errors are reported in the
// status field with an empty descriptor.
func (h *Handler) simpleDescRespond(env *wpan.Envelope) error {
	network, err := localNetwork(env)
	if err != nil {
		return err
	}
	if len(env.Payload) < 4 {
		return fmt.Errorf("%w: simple_desc_req of %d bytes", ErrBadMessage, len(env.Payload))
	}
	id := env.Payload[3]

	rsp := []byte{env.Payload[0], StatusSuccess, 0, 0, 0}
	binary.LittleEndian.PutUint16(rsp[2:4], network)

	var ep *wpan.Endpoint
	if id == 0 || id == 0xFF {
		rsp[1] = StatusInvalidEP
	} else if ep = env.Dev.EndpointMatch(id, wpan.ProfileAny); ep == nil {
		rsp[1] = StatusNotActive
	}
	if ep != nil {
		desc, ok := simpleDescriptor(ep)
		if ok {
			rsp[4] = uint8(len(desc))
			return SendResponse(env, append(rsp, desc...))
		}
		rsp[1] = StatusInsufficientSpace
	}
	h.logger.Debug("simple_desc_req rejected", "ep", id, "status", fmt.Sprintf("0x%02X", rsp[1]))
	return SendResponse(env, rsp)
}

func simpleDescriptor(ep *wpan.Endpoint) ([]byte, bool) {
	in := clusterList(ep, wpan.ClusterFlagInput)
	out := clusterList(ep, wpan.ClusterFlagOutput)
	if len(in)+len(out) > maxDescriptorClusters {
		return nil, false
	}
	b := make([]byte, 0, 8+2*(len(in)+len(out)))
	b = append(b, ep.ID)
	b = binary.LittleEndian.AppendUint16(b, ep.Profile)
	b = binary.LittleEndian.AppendUint16(b, ep.DeviceID)
	b = append(b, ep.DeviceVersion)
	b = appendClusters(b, in)
	b = appendClusters(b, out)
	return b, true
}

func clusterList(ep *wpan.Endpoint, mask wpan.ClusterFlags) []uint16 {
	var ids []uint16
	ep.EachCluster(func(c *wpan.Cluster) {
		if c.Flags&mask != 0 {
			ids = append(ids, c.ID)
		}
	})
	return ids
}

func appendClusters(b []byte, ids []uint16) []byte {
	b = append(b, uint8(len(ids)))
	for _, id := range ids {
		b = binary.LittleEndian.AppendUint16(b, id)
	}
	return b
}

// matchDescRespond answers Match_Desc_req with the endpoints on the requested
// profile that serve any listed input cluster or use any listed output
// cluster. Nothing is sent when no endpoint matches.
func (h *Handler) matchDescRespond(env *wpan.Envelope) error {
	network, err := localNetwork(env)
	if err != nil {
		return err
	}
	req, err := parseMatchDesc(env.Payload)
	if err != nil {
		return err
	}

	rsp := []byte{req.transaction, StatusSuccess, 0, 0, 0}
	binary.LittleEndian.PutUint16(rsp[2:4], network)
	for _, ep := range env.Dev.Endpoints() {
		if ep.ID == wpan.EndpointZDO || ep.Profile != req.profile {
			continue
		}
		if anyCluster(ep, req.in, wpan.ClusterFlagInput) || anyCluster(ep, req.out, wpan.ClusterFlagOutput) {
			rsp = append(rsp, ep.ID)
		}
	}
	if len(rsp) == 5 {
		return nil
	}
	rsp[4] = uint8(len(rsp) - 5)
	return SendResponse(env, rsp)
}

func anyCluster(ep *wpan.Endpoint, ids []uint16, mask wpan.ClusterFlags) bool {
	for _, id := range ids {
		if wpan.ClusterMatch(id, mask, ep.Clusters) != nil {
			return true
		}
	}
	return false
}

type matchDesc struct {
	transaction uint8
	profile     uint16
	in, out     []uint16
}

func parseMatchDesc(p []byte) (matchDesc, error) {
	var m matchDesc
	if len(p) < 6 {
		return m, fmt.Errorf("%w: match_desc_req of %d bytes", ErrBadMessage, len(p))
	}
	m.transaction = p[0]
	m.profile = binary.LittleEndian.Uint16(p[3:5])
	rest := p[5:]
	var err error
	if m.in, rest, err = readClusters(rest); err != nil {
		return m, err
	}
	if m.out, _, err = readClusters(rest); err != nil {
		return m, err
	}
	return m, nil
}

// readClusters reads a count byte followed by that many LE cluster IDs.
func readClusters(p []byte) ([]uint16, []byte, error) {
	if len(p) < 1 {
		return nil, nil, fmt.Errorf("%w: missing cluster count", ErrBadMessage)
	}
	n := int(p[0])
	p = p[1:]
	if len(p) < 2*n {
		return nil, nil, fmt.Errorf("%w: cluster list needs %d bytes, have %d", ErrBadMessage, 2*n, len(p))
	}
	ids := make([]uint16, n)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint16(p[2*i:])
	}
	return ids, p[2*n:], nil
}

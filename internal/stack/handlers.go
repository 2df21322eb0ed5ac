package stack

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"xbee-go-home/internal/store"
	"xbee-go-home/internal/wpan"
	"xbee-go-home/internal/xbee"
	"xbee-go-home/internal/zcl"
	"xbee-go-home/internal/zdo"
)

func (s *Stack) handleModemStatus(_ *xbee.Device, frame []byte) error {
	if len(frame) < 2 {
		return xbee.ErrBadMessage
	}
	status := frame[1]
	name := xbee.ModemStatusName(status)
	s.logger.Info("modem status", "status", name, "joined", s.dev.Flags()&wpan.FlagJoined != 0)
	s.events.Emit(Event{Type: EventModemStatus, Data: ModemStatusData{Status: status, Name: name}})

	switch status {
	case xbee.ModemStatusJoined, xbee.ModemStatusCoordinatorStarted:
		// the network address may have changed
		if _, err := s.radio.SendATCommand("MY", nil); err != nil {
			s.logger.Debug("query network address", "err", err)
		}
	}
	s.saveRadioState()
	return nil
}

func (s *Stack) handleTransmitStatus(_ *xbee.Device, frame []byte) error {
	ts, err := xbee.ParseTransmitStatus(frame)
	if err != nil {
		return err
	}
	s.count(func(c *Counters) {
		if ts.Ok() {
			c.TxSuccess++
		} else {
			c.TxFailed++
		}
	})
	if !ts.Ok() {
		s.logger.Debug("transmit failed",
			"frame_id", ts.FrameID,
			"network", hexAddr(ts.Network),
			"delivery", xbee.DeliveryName(ts.Delivery),
			"retries", ts.Retries)
	}
	s.events.Emit(Event{Type: EventTransmitStatus, Data: ts})
	return nil
}

func (s *Stack) handleATResponse(_ *xbee.Device, frame []byte) error {
	r, err := xbee.ParseATResponse(frame)
	if err != nil {
		return err
	}
	if r.Command == "ND" {
		return s.handleDiscoverResponse(r)
	}
	if err := r.Err(); err != nil {
		s.logger.Warn("at command", "err", err)
		return nil
	}

	switch r.Command {
	case "SH", "SL", "MY":
	default:
		return nil
	}
	v, err := r.Uint()
	if err != nil {
		return err
	}
	switch r.Command {
	case "SH":
		s.ieeeHigh, s.haveHigh = uint32(v), true
	case "SL":
		s.ieeeLow, s.haveLow = uint32(v), true
	case "MY":
		s.dev.SetNetwork(uint16(v))
		s.logger.Info("network address", "network", hexAddr(uint16(v)))
	}
	if r.Command != "MY" {
		if !s.haveHigh || !s.haveLow {
			return nil
		}
		var ieee wpan.Addr64
		binary.BigEndian.PutUint32(ieee[:4], s.ieeeHigh)
		binary.BigEndian.PutUint32(ieee[4:], s.ieeeLow)
		s.dev.SetIEEE(ieee)
		s.logger.Info("radio address", "ieee", ieee.String())
	}
	s.saveRadioState()
	return nil
}

// handleDiscoverResponse takes one ATND answer. An error status marks the
// end of the discovery window.
func (s *Stack) handleDiscoverResponse(r xbee.ATResponse) error {
	if r.Err() != nil || len(r.Value) == 0 {
		s.logger.Debug("node discovery finished", "frame_id", r.FrameID)
		return nil
	}
	n, err := xbee.ParseNodeID(r.Value)
	if err != nil {
		return err
	}
	s.onNodeDiscovered(n)
	return nil
}

func (s *Stack) handleNodeIDFrame(_ *xbee.Device, frame []byte) error {
	n, err := xbee.ParseNodeIDFrame(frame)
	if err != nil {
		return err
	}
	s.onNodeDiscovered(n)
	return nil
}

func (s *Stack) handleNodeIDCluster(env *wpan.Envelope) error {
	n, err := xbee.ParseNodeID(env.Payload)
	if err != nil {
		return err
	}
	s.onNodeDiscovered(n)
	return nil
}

func (s *Stack) onNodeDiscovered(n xbee.NodeID) {
	if n.IEEE == wpan.Addr64Undefined || n.IEEE == wpan.Addr64Broadcast {
		return
	}
	devType := xbee.DeviceTypeName(n.DeviceType)
	s.logger.Info("node discovered",
		"ieee", n.IEEE.String(),
		"network", hexAddr(n.Network),
		"parent", hexAddr(n.Parent),
		"type", devType,
		"identifier", n.Identifier)
	s.touchNode(n.IEEE, n.Network, func(node *store.Node) {
		node.Identifier = n.Identifier
		node.DeviceType = devType
	})
	s.events.Emit(Event{Type: EventNodeDiscovered, Data: NodeDiscoveredData{
		NodeData:   nodeData(n.IEEE, n.Network),
		Parent:     n.Parent,
		DeviceType: devType,
		Identifier: n.Identifier,
	}})
}

func (s *Stack) saveRadioState() {
	addr := s.dev.Address()
	rs := &store.RadioState{
		NetworkAddress: addr.Network,
		UpdatedAt:      s.now(),
	}
	if addr.IEEE != wpan.Addr64Undefined {
		rs.IEEEAddress = addr.IEEE.Hex()
	}
	if ms := s.radio.ModemStatus(); ms >= 0 {
		rs.LastModemStatus = xbee.ModemStatusName(uint8(ms))
	}
	if err := s.store.SaveRadioState(rs); err != nil {
		s.logger.Error("save radio state", "err", err)
	}
}

// onEnvelope sees every received envelope before dispatch.
func (s *Stack) onEnvelope(env *wpan.Envelope) {
	s.count(func(c *Counters) { c.Envelopes++ })
	s.events.Emit(Event{Type: EventEnvelope, Data: NewEnvelopeData(env)})
	if env.IEEE == wpan.Addr64Undefined || env.IEEE == wpan.Addr64Broadcast {
		return
	}
	s.touchNode(env.IEEE, env.Network, nil)
}

// touchNode refreshes a node's network address and last seen time, then
// applies fn.
func (s *Stack) touchNode(ieee wpan.Addr64, network uint16, fn func(n *store.Node)) {
	now := s.now()
	err := s.store.UpdateNode(ieee.Hex(), func(n *store.Node) error {
		if n.FirstSeen.IsZero() {
			n.FirstSeen = now
		}
		n.LastSeen = now
		if network != wpan.NetAddrUndefined {
			n.NetworkAddress = network
		}
		if fn != nil {
			fn(n)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("update node", "ieee", ieee.Hex(), "err", err)
	}
}

func (s *Stack) onAnnounce(a zdo.Announce) {
	s.logger.Info("node announce",
		"ieee", a.IEEE.String(),
		"network", hexAddr(a.Network),
		"capability", fmt.Sprintf("0x%02X", a.Capability))
	s.touchNode(a.IEEE, a.Network, func(n *store.Node) {
		n.Announced = true
		n.Capability = a.Capability
	})
	s.events.Emit(Event{Type: EventNodeAnnounce, Data: AnnounceData{
		NodeData:   nodeData(a.IEEE, a.Network),
		Capability: a.Capability,
	}})
	if s.config.Interview {
		if _, err := s.requestActiveEndpoints(a.IEEE, a.Network, true); err != nil {
			s.logger.Warn("interview", "ieee", a.IEEE.String(), "err", err)
		}
	}
}

func (s *Stack) handleSerial(env *wpan.Envelope) error {
	s.events.Emit(Event{Type: EventSerialData, Data: SerialData{
		NodeData: nodeData(env.IEEE, env.Network),
		Data:     hex.EncodeToString(env.Payload),
	}})
	return nil
}

func (s *Stack) handleCluster(env *wpan.Envelope) error {
	cmd, err := zcl.ParseCommand(env)
	if err != nil {
		return err
	}
	s.events.Emit(Event{Type: EventClusterCommand, Data: ClusterCommandData{
		EnvelopeData:    NewEnvelopeData(env),
		ClusterName:     s.registry.ClusterName(env.Cluster),
		Command:         cmd.Command,
		CommandName:     s.registry.CommandName(env.Cluster, cmd),
		Sequence:        cmd.Sequence,
		ClusterSpecific: cmd.IsClusterCommand(),
		FromServer:      cmd.FromServer(),
		Args:            hex.EncodeToString(cmd.Payload),
	}})

	if !cmd.IsClusterCommand() && !acceptedGeneralCommand(cmd.Command) {
		return zcl.InvalidCommand(env)
	}
	return zcl.DefaultResponse(cmd, zcl.StatusSuccess)
}

// acceptedGeneralCommand reports whether a profile wide command needs no
// local attribute table: reports and responses to our own requests.
func acceptedGeneralCommand(id uint8) bool {
	switch id {
	case zcl.CmdReadAttributesResponse,
		zcl.CmdWriteAttributesResponse,
		zcl.CmdConfigureReportingResp,
		zcl.CmdReadReportingConfigResp,
		zcl.CmdReportAttributes,
		zcl.CmdDefaultResponse,
		zcl.CmdDiscoverAttributesResp:
		return true
	}
	return false
}

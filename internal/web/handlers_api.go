package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/store"
	"xbee-go-home/internal/wpan"
	"xbee-go-home/internal/xbee"
	"xbee-go-home/internal/zdo"
)

const requestTimeout = 10 * time.Second

func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		stack.Status
		WSClients int `json:"ws_clients"`
	}{s.backend.Status(), s.wsHub.Clients()})
}

func (s *Server) handleAPIListNodes(w http.ResponseWriter, _ *http.Request) {
	nodes, err := s.backend.Store().ListNodes()
	if err != nil {
		s.logger.Error("list nodes", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if nodes == nil {
		nodes = []*store.Node{}
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// pathNode parses the {ieee} path value and loads the node. It writes the
// error response and returns nil when either step fails.
func (s *Server) pathNode(w http.ResponseWriter, r *http.Request) (wpan.Addr64, *store.Node) {
	addr, err := wpan.ParseAddr64(r.PathValue("ieee"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ieee address")
		return addr, nil
	}
	node, err := s.backend.Store().GetNode(addr.Hex())
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node not found")
		return addr, nil
	}
	if err != nil {
		s.logger.Error("get node", "ieee", addr, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return addr, nil
	}
	return addr, node
}

func (s *Server) handleAPIGetNode(w http.ResponseWriter, r *http.Request) {
	if _, node := s.pathNode(w, r); node != nil {
		s.writeJSON(w, http.StatusOK, node)
	}
}

func (s *Server) handleAPIDeleteNode(w http.ResponseWriter, r *http.Request) {
	addr, err := wpan.ParseAddr64(r.PathValue("ieee"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ieee address")
		return
	}
	err = s.backend.Store().DeleteNode(addr.Hex())
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	if err != nil {
		s.logger.Error("delete node", "ieee", addr, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStackError maps stack and wpan errors onto HTTP statuses.
func (s *Server) writeStackError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, wpan.ErrInvalid), errors.Is(err, xbee.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, stack.ErrNotRunning), errors.Is(err, wpan.ErrExhaustedPool):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "radio did not respond")
	default:
		s.logger.Error(op, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleAPIDiscover starts a node discovery. An empty body asks every node
// to answer. Answers arrive as node_discovered events.
func (s *Server) handleAPIDiscover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeBody(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	frameID, err := s.backend.DiscoverNodes(ctx, body.Identifier)
	if err != nil {
		s.writeStackError(w, "node discovery", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, struct {
		Status  string `json:"status"`
		FrameID uint8  `json:"frame_id"`
	}{"pending", frameID})
}

type transactionResponse struct {
	Status      string `json:"status"`
	Transaction uint8  `json:"transaction"`
}

func (s *Server) handleAPIActiveEndpoints(w http.ResponseWriter, r *http.Request) {
	addr, node := s.pathNode(w, r)
	if node == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	trans, err := s.backend.RequestActiveEndpoints(ctx, addr, node.NetworkAddress)
	if err != nil {
		s.writeStackError(w, "active endpoints request", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, transactionResponse{Status: "pending", Transaction: trans})
}

func (s *Server) handleAPISimpleDescriptor(w http.ResponseWriter, r *http.Request) {
	addr, node := s.pathNode(w, r)
	if node == nil {
		return
	}
	ep, err := strconv.ParseUint(r.PathValue("ep"), 0, 8)
	if err != nil || !validEndpoint(uint8(ep)) {
		s.writeError(w, http.StatusBadRequest, "invalid endpoint")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	trans, err := s.backend.RequestSimpleDescriptor(ctx, addr, node.NetworkAddress, uint8(ep))
	if err != nil {
		s.writeStackError(w, "simple descriptor request", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, transactionResponse{Status: "pending", Transaction: trans})
}

type bindBody struct {
	SrcEndpoint uint8  `json:"src_endpoint"`
	Cluster     uint16 `json:"cluster"`
	DstIEEE     string `json:"dst_ieee"`
	DstEndpoint uint8  `json:"dst_endpoint"`
}

// handleAPIBind binds a cluster of the node to a destination. Without
// dst_ieee the destination is this gateway.
func (s *Server) handleAPIBind(unbind bool) http.HandlerFunc {
	op, send := "bind", s.backend.Bind
	if unbind {
		op, send = "unbind", s.backend.Unbind
	}
	return func(w http.ResponseWriter, r *http.Request) {
		addr, node := s.pathNode(w, r)
		if node == nil {
			return
		}
		var body bindBody
		if err := decodeBody(w, r, &body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validEndpoint(body.SrcEndpoint) || !validEndpoint(body.DstEndpoint) {
			s.writeError(w, http.StatusBadRequest, "invalid endpoint")
			return
		}
		dstIEEE := body.DstIEEE
		if dstIEEE == "" {
			dstIEEE = s.backend.Status().IEEE
			if dstIEEE == "" {
				s.writeError(w, http.StatusServiceUnavailable, "local address not known yet")
				return
			}
		}
		dst, err := wpan.ParseAddr64(dstIEEE)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid dst_ieee")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		trans, err := send(ctx, node.NetworkAddress, zdo.BindRequest{
			SrcIEEE:   addr,
			SrcEP:     body.SrcEndpoint,
			ClusterID: body.Cluster,
			DstIEEE:   dst,
			DstEP:     body.DstEndpoint,
		})
		if err != nil {
			s.writeStackError(w, op+" request", err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, transactionResponse{Status: "pending", Transaction: trans})
	}
}

func validEndpoint(ep uint8) bool {
	return ep != wpan.EndpointZDO && ep != wpan.EndpointBroadcast
}

func (s *Server) handleAPISend(w http.ResponseWriter, r *http.Request) {
	var req stack.SendRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IEEE == "" {
		s.writeError(w, http.StatusBadRequest, "ieee is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.backend.Send(ctx, req); err != nil {
		s.writeStackError(w, "send", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleAPIListClusters(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Registry().All())
}

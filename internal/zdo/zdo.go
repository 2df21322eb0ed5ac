// Package zdo serves the ZigBee Device Object endpoint: descriptor
// requests from other nodes, device announcements and the responses to our
// own ZDO requests.
package zdo

import (
	"errors"
	"fmt"

	"xbee-go-home/internal/wpan"
)

// ZDO cluster IDs. Responses use the request ID with ResponseMask set.
const (
	ClusterNwkAddrReq        uint16 = 0x0000
	ClusterIEEEAddrReq       uint16 = 0x0001
	ClusterNodeDescReq       uint16 = 0x0002
	ClusterPowerDescReq      uint16 = 0x0003
	ClusterSimpleDescReq     uint16 = 0x0004
	ClusterActiveEPReq       uint16 = 0x0005
	ClusterMatchDescReq      uint16 = 0x0006
	ClusterDeviceAnnce       uint16 = 0x0013
	ClusterBindReq           uint16 = 0x0021
	ClusterUnbindReq         uint16 = 0x0022
	ClusterMgmtLeaveReq      uint16 = 0x0034
	ClusterMgmtPermitJoinReq uint16 = 0x0036

	ResponseMask uint16 = 0x8000
)

// IsResponse reports whether cluster is a ZDO response cluster.
func IsResponse(cluster uint16) bool { return cluster&ResponseMask != 0 }

// ZDO status codes
const (
	StatusSuccess           uint8 = 0x00
	StatusInvalidRequest    uint8 = 0x80
	StatusDeviceNotFound    uint8 = 0x81
	StatusInvalidEP         uint8 = 0x82
	StatusNotActive         uint8 = 0x83
	StatusNotSupported      uint8 = 0x84
	StatusTimeout           uint8 = 0x85
	StatusNoMatch           uint8 = 0x86
	StatusNoEntry           uint8 = 0x88
	StatusNoDescriptor      uint8 = 0x89
	StatusInsufficientSpace uint8 = 0x8A
)

// ConversationTimeout is the time, in seconds, to wait for a ZDO response.
const ConversationTimeout uint16 = 15

var (
	// ErrNoAddress means the local network address is not known yet, so
	// descriptor requests cannot be answered.
	ErrNoAddress = errors.New("zdo: local network address unknown")

	// ErrBadMessage means a ZDO payload is shorter than its format requires.
	ErrBadMessage = errors.New("zdo: malformed payload")

	// ErrInvalid reports caller misuse.
	ErrInvalid = errors.New("zdo: invalid argument")
)

var clusterNames = map[uint16]string{
	ClusterNwkAddrReq:        "NWK_addr",
	ClusterIEEEAddrReq:       "IEEE_addr",
	ClusterNodeDescReq:       "Node_Desc",
	ClusterPowerDescReq:      "Power_Desc",
	ClusterSimpleDescReq:     "Simple_Desc",
	ClusterActiveEPReq:       "Active_EP",
	ClusterMatchDescReq:      "Match_Desc",
	ClusterDeviceAnnce:       "Device_annce",
	ClusterBindReq:           "Bind",
	ClusterUnbindReq:         "Unbind",
	ClusterMgmtLeaveReq:      "Mgmt_Leave",
	ClusterMgmtPermitJoinReq: "Mgmt_Permit_Joining",
}

// ClusterName names a ZDO cluster, with a _req or _rsp suffix.
func ClusterName(cluster uint16) string {
	n, ok := clusterNames[cluster&^ResponseMask]
	if !ok {
		return fmt.Sprintf("0x%04X", cluster)
	}
	if cluster == ClusterDeviceAnnce {
		return n
	}
	if IsResponse(cluster) {
		return n + "_rsp"
	}
	return n + "_req"
}

// Endpoint returns the ZDO endpoint table entry served by h. It takes the
// default conversation capacity of the device.
func Endpoint(h *Handler) *wpan.Endpoint {
	return &wpan.Endpoint{
		ID:      wpan.EndpointZDO,
		Profile: wpan.ProfileZDO,
		Handler: h,
	}
}

func reverse(a wpan.Addr64) [8]byte {
	var le [8]byte
	for i := range a {
		le[i] = a[7-i]
	}
	return le
}

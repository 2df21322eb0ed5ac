package store

import "time"

// Node is a remote radio seen on the network.
type Node struct {
	IEEEAddress    string     `json:"ieee_address"`
	NetworkAddress uint16     `json:"network_address"`
	Identifier     string     `json:"identifier,omitempty"`
	DeviceType     string     `json:"device_type,omitempty"`
	Capability     uint8      `json:"capability,omitempty"`
	Endpoints      []Endpoint `json:"endpoints,omitempty"`
	Announced      bool       `json:"announced"`
	FirstSeen      time.Time  `json:"first_seen"`
	LastSeen       time.Time  `json:"last_seen"`
}

// Endpoint is a node endpoint learned from its simple descriptor.
type Endpoint struct {
	ID            uint8    `json:"id"`
	ProfileID     uint16   `json:"profile_id"`
	DeviceID      uint16   `json:"device_id"`
	DeviceVersion uint8    `json:"device_version"`
	InClusters    []uint16 `json:"in_clusters"`
	OutClusters   []uint16 `json:"out_clusters"`
}

// SetEndpoint adds ep, replacing an endpoint with the same ID.
func (n *Node) SetEndpoint(ep Endpoint) {
	for i := range n.Endpoints {
		if n.Endpoints[i].ID == ep.ID {
			n.Endpoints[i] = ep
			return
		}
	}
	n.Endpoints = append(n.Endpoints, ep)
}

// RadioState is the last known identity of the local radio.
type RadioState struct {
	IEEEAddress     string    `json:"ieee_address"`
	NetworkAddress  uint16    `json:"network_address"`
	LastModemStatus string    `json:"last_modem_status,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

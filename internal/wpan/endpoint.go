package wpan

// ClusterFlags describe a cluster table entry.
type ClusterFlags uint8

const (
	ClusterFlagNone ClusterFlags = 0x00

	// ClusterFlagInput: cluster is an input (server) cluster.
	ClusterFlagInput ClusterFlags = 0x01
	// ClusterFlagOutput: cluster is an output (client) cluster.
	ClusterFlagOutput ClusterFlags = 0x02
	// ClusterFlagInOut matches either direction in ClusterMatch.
	ClusterFlagInOut = ClusterFlagInput | ClusterFlagOutput

	ClusterFlagServer = ClusterFlagInput
	ClusterFlagClient = ClusterFlagOutput

	// ClusterFlagEncrypt: requests must arrive APS encrypted, responses are sent encrypted.
	ClusterFlagEncrypt ClusterFlags = 0x10
	// ClusterFlagEncryptUnicast: like ClusterFlagEncrypt but broadcasts may arrive in the clear.
	ClusterFlagEncryptUnicast ClusterFlags = 0x20
	// ClusterFlagNotZCL: payloads are not ZCL frames and bypass the encryption gate.
	ClusterFlagNotZCL ClusterFlags = 0x80
)

// ClusterHandler processes envelopes for one cluster.
type ClusterHandler interface {
	HandleCluster(env *Envelope) error
}

// ClusterHandlerFunc adapts a function to ClusterHandler.
type ClusterHandlerFunc func(env *Envelope) error

func (f ClusterHandlerFunc) HandleCluster(env *Envelope) error { return f(env) }

// EndpointHandler is the fallback for envelopes whose cluster has no handler.
type EndpointHandler interface {
	HandleEndpoint(env *Envelope, state *EndpointState) error
}

// EndpointHandlerFunc adapts a function to EndpointHandler.
type EndpointHandlerFunc func(env *Envelope, state *EndpointState) error

func (f EndpointHandlerFunc) HandleEndpoint(env *Envelope, state *EndpointState) error {
	return f(env, state)
}

// Cluster is one entry of an endpoint's cluster table.
type Cluster struct {
	ID      uint16
	Handler ClusterHandler
	Flags   ClusterFlags
}

// Endpoint is one entry of the device's endpoint table.
type Endpoint struct {
	ID            uint8
	Profile       uint16
	Handler       EndpointHandler
	State         *EndpointState
	DeviceID      uint16
	DeviceVersion uint8
	Clusters      []Cluster
}

// ClusterMatch returns the first cluster in table with the given id whose
// flags share at least one bit with mask. A ClusterEnd entry ends the search.
func ClusterMatch(id uint16, mask ClusterFlags, table []Cluster) *Cluster {
	for i := range table {
		c := &table[i]
		if c.ID == ClusterEnd {
			break
		}
		if c.ID == id && c.Flags&mask != 0 {
			return c
		}
	}
	return nil
}

// EachCluster calls fn for every cluster before the ClusterEnd sentinel.
func (ep *Endpoint) EachCluster(fn func(c *Cluster)) {
	for i := range ep.Clusters {
		if ep.Clusters[i].ID == ClusterEnd {
			return
		}
		fn(&ep.Clusters[i])
	}
}

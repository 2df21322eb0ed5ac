package stack

import (
	"fmt"
	"strings"

	"xbee-go-home/internal/wpan"
)

var clusterFlagNames = map[string]wpan.ClusterFlags{
	"input":           wpan.ClusterFlagInput,
	"server":          wpan.ClusterFlagServer,
	"output":          wpan.ClusterFlagOutput,
	"client":          wpan.ClusterFlagClient,
	"encrypt":         wpan.ClusterFlagEncrypt,
	"encrypt_unicast": wpan.ClusterFlagEncryptUnicast,
	"not_zcl":         wpan.ClusterFlagNotZCL,
}

// ParseClusterFlags combines flag names from configuration. With no names
// the cluster is an input cluster.
func ParseClusterFlags(names []string) (wpan.ClusterFlags, error) {
	if len(names) == 0 {
		return wpan.ClusterFlagInput, nil
	}
	var flags wpan.ClusterFlags
	for _, n := range names {
		f, ok := clusterFlagNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown cluster flag %q", n)
		}
		flags |= f
	}
	if flags&wpan.ClusterFlagInOut == 0 {
		flags |= wpan.ClusterFlagInput
	}
	return flags, nil
}

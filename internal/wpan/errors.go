package wpan

import "errors"

var (
	// ErrNotFound means no endpoint, cluster or conversation matched. Callers
	// treat it as "ignore the frame", never as a fatal condition.
	ErrNotFound = errors.New("wpan: not found")

	// ErrExhaustedPool is returned by Register when every conversation slot of
	// the endpoint is in use. The request is not queued; retry later.
	ErrExhaustedPool = errors.New("wpan: conversation pool exhausted")

	// ErrInvalid reports caller misuse: nil envelope, nil state, aliased
	// envelopes or a device without a radio.
	ErrInvalid = errors.New("wpan: invalid argument")

	// ErrEncryptionRequired is returned by Dispatch when a cluster requires
	// APS encryption, the frame was not encrypted and the device has no
	// invalid-cluster handler to answer the sender.
	ErrEncryptionRequired = errors.New("wpan: cluster requires encryption")
)

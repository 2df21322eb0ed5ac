// Package store persists discovered nodes and the local radio state.
package store

import "errors"

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	// Node operations, keyed by 16 hex digit IEEE address
	SaveNode(node *Node) error
	GetNode(ieee string) (*Node, error)
	DeleteNode(ieee string) error
	ListNodes() ([]*Node, error)

	// UpdateNode atomically reads, modifies, and saves a node in a single
	// transaction. A node that does not exist yet is created with only its
	// IEEE address set before fn runs.
	UpdateNode(ieee string, fn func(node *Node) error) error

	// Local radio state
	SaveRadioState(state *RadioState) error
	GetRadioState() (*RadioState, error)

	// Close the store
	Close() error
}

package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes = []byte("nodes")
	bucketRadio = []byte("radio")
	keyRadio    = []byte("state")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketRadio} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("bucket %q not found", name)
	}
	return b, nil
}

func putNode(b *bolt.Bucket, node *Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return b.Put([]byte(node.IEEEAddress), data)
}

func (s *BoltStore) SaveNode(node *Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketNodes)
		if err != nil {
			return err
		}
		return putNode(b, node)
	})
}

func (s *BoltStore) GetNode(ieee string) (*Node, error) {
	var node Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketNodes)
		if err != nil {
			return err
		}
		data := b.Get([]byte(ieee))
		if data == nil {
			return fmt.Errorf("node %s: %w", ieee, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) DeleteNode(ieee string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketNodes)
		if err != nil {
			return err
		}
		if b.Get([]byte(ieee)) == nil {
			return fmt.Errorf("node %s: %w", ieee, ErrNotFound)
		}
		return b.Delete([]byte(ieee))
	})
}

func (s *BoltStore) ListNodes() ([]*Node, error) {
	var nodes []*Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b == nil {
			return nil // no bucket = no nodes
		}
		nodes = make([]*Node, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var node Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(ieee string, fn func(node *Node) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketNodes)
		if err != nil {
			return err
		}
		node := Node{IEEEAddress: ieee}
		if data := b.Get([]byte(ieee)); data != nil {
			if err := json.Unmarshal(data, &node); err != nil {
				return err
			}
		}
		if err := fn(&node); err != nil {
			return err
		}
		// the key is fixed by the caller
		node.IEEEAddress = ieee
		return putNode(b, &node)
	})
}

func (s *BoltStore) SaveRadioState(state *RadioState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketRadio)
		if err != nil {
			return err
		}
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return b.Put(keyRadio, data)
	})
}

func (s *BoltStore) GetRadioState() (*RadioState, error) {
	var state RadioState
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketRadio)
		if err != nil {
			return err
		}
		data := b.Get(keyRadio)
		if data == nil {
			return fmt.Errorf("radio state: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

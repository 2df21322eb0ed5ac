package trace

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Empty/nil fields match all events for that criterion.
type Filter struct {
	Session   string
	Direction *Direction
	// FrameTypes, when non-empty, lists the frame types to keep.
	FrameTypes []uint8
	Since      *time.Time
}

func (f *Filter) matches(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Direction != nil && e.Direction != *f.Direction {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if len(f.FrameTypes) == 0 {
		return true
	}
	for _, t := range f.FrameTypes {
		if e.FrameType == t {
			return true
		}
	}
	return false
}

// Reader streams events from a capture file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a capture file, returning only events that match filter.
func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: newDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		if err := r.decoder.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

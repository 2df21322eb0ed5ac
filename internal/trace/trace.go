// Package trace captures the API frames exchanged with the radio into a
// CBOR file, one record per frame, and reads such captures back.
package trace

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"xbee-go-home/internal/xbee"
)

// Event is one captured frame. CBOR encoding uses integer keys. Session is
// the recorder run's UUID; Data is the frame body without start byte,
// length or checksum.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint" json:"timestamp"`
	Session   string    `cbor:"2,keyasint" json:"session"`
	Direction Direction `cbor:"3,keyasint" json:"direction"`
	FrameType uint8     `cbor:"4,keyasint" json:"frame_type"`
	FrameID   uint8     `cbor:"5,keyasint,omitempty" json:"frame_id,omitempty"`
	Data      []byte    `cbor:"6,keyasint" json:"data"`
}

// TypeName names the frame type.
func (e Event) TypeName() string { return xbee.FrameTypeName(e.FrameType) }

func (e Event) String() string {
	return fmt.Sprintf("%s %s %-3s %-22s id=%-3d % X",
		e.Timestamp.Format(time.RFC3339Nano), e.Session[:min(8, len(e.Session))],
		e.Direction, e.TypeName(), e.FrameID, e.Data)
}

// Direction indicates which way a frame travelled.
type Direction uint8

const (
	// DirectionIn is a frame read from the radio.
	DirectionIn Direction = 0
	// DirectionOut is a frame written to the radio.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection accepts "in" or "out" in any case.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in", "IN", "In":
		return DirectionIn, nil
	case "out", "OUT", "Out":
		return DirectionOut, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR.
func EncodeEvent(e Event) ([]byte, error) {
	return encMode.Marshal(e)
}

// DecodeEvent decodes one CBOR encoded Event.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }

package trace

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"xbee-go-home/internal/xbee"
)

// Recorder appends captured frames to a file.
// It is safe for concurrent use from multiple goroutines.
type Recorder struct {
	file    *os.File
	encoder *cbor.Encoder
	session string
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	count  int
}

// NewRecorder opens path for appending, creating it with permissions 0644,
// and starts a new session.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Recorder{
		file:    f,
		encoder: newEncoder(f),
		session: uuid.New().String(),
		now:     time.Now,
	}, nil
}

// Session returns the id stamped on every event of this recorder.
func (r *Recorder) Session() string { return r.session }

// Count returns the number of events written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record writes one frame body. Calls after Close are ignored; encoding
// errors are dropped so capture never disturbs the radio.
func (r *Recorder) Record(dir Direction, frame []byte) {
	if len(frame) == 0 {
		return
	}
	e := Event{
		Timestamp: r.now(),
		Session:   r.session,
		Direction: dir,
		FrameType: frame[0],
		FrameID:   xbee.FrameID(frame),
		Data:      append([]byte(nil), frame...),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if err := r.encoder.Encode(e); err == nil {
		r.count++
	}
}

// Observer adapts the recorder to an xbee frame observer.
func (r *Recorder) Observer() xbee.FrameObserver {
	return func(outbound bool, frame []byte) {
		dir := DirectionIn
		if outbound {
			dir = DirectionOut
		}
		r.Record(dir, frame)
	}
}

// Close closes the file. It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

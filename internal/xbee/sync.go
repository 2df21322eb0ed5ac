package xbee

// ByteSource supplies received bytes. Read must not block: (0, nil) means
// nothing is available yet.
type ByteSource interface {
	Read(p []byte) (int, error)
}

type syncState uint8

const (
	stateWaitStart syncState = iota
	stateLengthHigh
	stateLengthLow
	stateReceiveFrame
)

// FrameSync reassembles API frames from a byte stream. It keeps its position
// between calls, so a frame may arrive over any number of reads.
type FrameSync struct {
	state  syncState
	length int
	read   int
	buf    [MaxFrameLen + 1]byte
}

// Reset drops any partially received frame.
func (s *FrameSync) Reset() {
	s.state = stateWaitStart
	s.length = 0
	s.read = 0
}

func readByte(src ByteSource) (byte, bool, error) {
	var b [1]byte
	n, err := src.Read(b[:])
	if n == 1 {
		return b[0], true, nil
	}
	return 0, false, err
}

// Load reads from src until it runs dry, handing each complete frame with a
// valid checksum to dispatch. The slice passed to dispatch is the frame body
// (no start byte, length or checksum) and is only valid during the call.
// Load returns after MaxDispatchPerTick frames, when src has no more bytes,
// or when src returns an error, which is passed back with the frame count.
func (s *FrameSync) Load(src ByteSource, dispatch func(frame []byte)) (int, error) {
	dispatched := 0
	for {
		switch s.state {
		case stateWaitStart:
			for {
				ch, ok, err := readByte(src)
				if !ok {
					return dispatched, err
				}
				if ch == StartByte {
					break
				}
			}
			s.state = stateLengthHigh

		case stateLengthHigh:
			ch, ok, err := readByte(src)
			if !ok {
				return dispatched, err
			}
			// The length MSB can never be 0x7E; treat it as a new start byte.
			if ch == StartByte {
				continue
			}
			s.length = int(ch) << 8
			s.state = stateLengthLow

		case stateLengthLow:
			ch, ok, err := readByte(src)
			if !ok {
				return dispatched, err
			}
			s.length += int(ch)
			if s.length > MaxFrameLen || s.length < 2 {
				// 0x7E xx 0x7E: the second 0x7E may be the real start.
				if ch == StartByte {
					s.state = stateLengthHigh
				} else {
					s.state = stateWaitStart
				}
				continue
			}
			s.read = 0
			s.state = stateReceiveFrame

		case stateReceiveFrame:
			want := s.length + 1 - s.read
			n, err := src.Read(s.buf[s.read : s.read+want])
			if n > 0 {
				s.read += n
			}
			if n != want {
				return dispatched, err
			}
			s.state = stateWaitStart
			if Checksum(0xFF, s.buf[:s.length+1]) != 0 {
				continue
			}
			dispatched++
			dispatch(s.buf[:s.length])
			if dispatched >= MaxDispatchPerTick {
				return dispatched, nil
			}

		default:
			s.Reset()
		}
	}
}

package xbee

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"xbee-go-home/internal/syncutil"
	"xbee-go-home/internal/wpan"
)

// Port is the serial connection to the radio. Read must not block.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// TxFree is the space left in the transmit buffer.
	TxFree() int
	// TxUsed is the number of bytes waiting to be transmitted.
	TxUsed() int
	// CTS reports the state of the clear-to-send line.
	CTS() (bool, error)
}

// FrameObserver sees the body of every frame read (outbound false) and
// written (outbound true). frame is only valid during the call.
type FrameObserver func(outbound bool, frame []byte)

// Device is one radio on one port. Tick, WriteFrame and EndpointSend are
// meant to be driven from a single goroutine; the writer is locked so other
// goroutines may still write frames.
type Device struct {
	port     Port
	wpan     *wpan.Device
	logger   *slog.Logger
	handlers []DispatchEntry
	observer FrameObserver

	flowControl atomic.Bool
	inTick      atomic.Bool
	modemStatus atomic.Int32

	rx FrameSync

	writeMu syncutil.Mutex
	frameID uint8
}

// Option configures a Device.
type Option func(*Device)

// WithFrameHandlers installs the frame dispatch table.
func WithFrameHandlers(entries ...DispatchEntry) Option {
	return func(d *Device) { d.handlers = append(d.handlers, entries...) }
}

// WithFlowControl makes WriteFrame honour the CTS line.
func WithFlowControl(on bool) Option {
	return func(d *Device) { d.flowControl.Store(on) }
}

// WithFrameObserver registers an observer for traffic in both directions.
func WithFrameObserver(o FrameObserver) Option {
	return func(d *Device) { d.observer = o }
}

// WithWPAN attaches the application layer that receives envelopes and
// tracks the network state reported by modem status frames.
func WithWPAN(w *wpan.Device) Option {
	return func(d *Device) { d.wpan = w }
}

// NewDevice creates a device on port.
func NewDevice(port Port, logger *slog.Logger, opts ...Option) *Device {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Device{
		port:   port,
		logger: logger.With("component", "xbee"),
	}
	d.modemStatus.Store(-1)
	for _, o := range opts {
		o(d)
	}
	return d
}

// WPAN returns the attached application layer, or nil.
func (d *Device) WPAN() *wpan.Device { return d.wpan }

// SetWPAN attaches w.
func (d *Device) SetWPAN(w *wpan.Device) { d.wpan = w }

// SetFlowControl turns CTS checking on or off.
func (d *Device) SetFlowControl(on bool) { d.flowControl.Store(on) }

// ModemStatus returns the last modem status received, or -1 if none.
func (d *Device) ModemStatus() int { return int(d.modemStatus.Load()) }

// Tick reads and dispatches pending frames, at most MaxDispatchPerTick per
// call. It returns ErrBusy when called from inside a frame handler.
func (d *Device) Tick() (int, error) {
	if d == nil || d.port == nil {
		return 0, ErrInvalid
	}
	if !d.inTick.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer d.inTick.Store(false)

	n, err := d.rx.Load(d.port, d.handleFrame)
	if err != nil {
		return n, fmt.Errorf("xbee read: %w", err)
	}
	return n, nil
}

func (d *Device) handleFrame(frame []byte) {
	if d.observer != nil {
		d.observer(false, frame)
	}
	n, err := d.dispatchFrame(frame)
	if err != nil {
		return
	}
	if n == 0 {
		d.logger.Debug("unhandled frame", "type", FrameTypeName(frame[0]), "len", len(frame))
	}
}

// NextFrameID returns the next frame id, 1 through 255. Frame id 0 asks the
// radio not to report status, so it is never returned.
func (d *Device) NextFrameID() uint8 {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.nextFrameIDLocked()
}

func (d *Device) nextFrameIDLocked() uint8 {
	d.frameID++
	if d.frameID == 0 {
		d.frameID = 1
	}
	return d.frameID
}

// WriteFrame sends header followed by data as one API frame. It returns
// ErrBusy when the port cannot take the frame now and ErrMessageSize when
// the frame will never fit its transmit buffer.
func (d *Device) WriteFrame(header, data []byte) error {
	if d == nil || d.port == nil {
		return ErrInvalid
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.writeFrameLocked(header, data)
}

func (d *Device) writeFrameLocked(header, data []byte) error {
	cts := true
	if d.flowControl.Load() {
		var err error
		if cts, err = d.port.CTS(); err != nil {
			return fmt.Errorf("xbee cts: %w", err)
		}
	}
	if len(header)+len(data) == 0 {
		return ErrNoData
	}

	size := len(header) + len(data) + frameOverhead
	free := d.port.TxFree()
	if !cts || free < size {
		if size-free > d.port.TxUsed() {
			return ErrMessageSize
		}
		return ErrBusy
	}

	frame, err := EncodeFrame(header, data)
	if err != nil {
		return err
	}
	if _, err := d.port.Write(frame); err != nil {
		return fmt.Errorf("xbee write: %w", err)
	}
	if d.observer != nil {
		d.observer(true, frame[3:len(frame)-1])
	}
	return nil
}

package xbee

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"xbee-go-home/internal/syncutil"
)

const (
	// DefaultTxBuffer is the transmit buffer size reported by TxFree.
	DefaultTxBuffer = 256

	serialReadTimeout = 50 * time.Millisecond
	serialRxBuffer    = 4096
)

// SerialPort adapts a go.bug.st/serial port to Port. A background goroutine
// drains the UART into a buffer so Read never blocks.
type SerialPort struct {
	port     serial.Port
	portName string
	logger   *slog.Logger
	txBuffer int

	mu      syncutil.Mutex
	rx      []byte
	readErr error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// OpenSerial opens name at baud, 8N1, with DTR and RTS asserted.
func OpenSerial(name string, baud int, logger *slog.Logger) (*SerialPort, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("xbee serial: open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("xbee serial: set read timeout: %w", err)
	}
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)
	return newSerialPort(port, name, logger), nil
}

// newSerialPort wraps an open port and starts its reader.
func newSerialPort(port serial.Port, name string, logger *slog.Logger) *SerialPort {
	p := &SerialPort{
		port:     port,
		portName: name,
		logger:   logger.With("component", "serial", "port", name),
		txBuffer: DefaultTxBuffer,
		done:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.readLoop()
	return p
}

// SetTxBuffer sets the size reported by TxFree.
func (p *SerialPort) SetTxBuffer(n int) {
	if n > 0 {
		p.txBuffer = n
	}
}

func (p *SerialPort) readLoop() {
	defer p.wg.Done()

	buf := make([]byte, 256)
	for {
		select {
		case <-p.done:
			return
		default:
		}

		n, err := p.port.Read(buf)
		if n > 0 {
			p.mu.Lock()
			if len(p.rx)+n > serialRxBuffer {
				// overrun: keep the newest bytes, frame sync recovers
				drop := len(p.rx) + n - serialRxBuffer
				if drop > len(p.rx) {
					drop = len(p.rx)
				}
				p.rx = p.rx[drop:]
			}
			p.rx = append(p.rx, buf[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			select {
			case <-p.done:
				return
			default:
			}
			if err != io.EOF && !strings.Contains(err.Error(), "closed") {
				p.logger.Error("serial read error", "err", err)
			}
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			return
		}
	}
}

// Read returns buffered bytes, or (0, nil) when none are buffered. After the
// reader stops the stored error is returned once the buffer is drained.
func (p *SerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0, p.readErr
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	if len(p.rx) == 0 {
		p.rx = nil
	}
	return n, nil
}

// Write writes p to the UART.
func (p *SerialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// TxFree reports the configured transmit buffer size. Writes block in the
// driver, so the buffer is always empty between frames.
func (p *SerialPort) TxFree() int { return p.txBuffer }

// TxUsed always reports 0; see TxFree.
func (p *SerialPort) TxUsed() int { return 0 }

// CTS reads the clear-to-send modem line.
func (p *SerialPort) CTS() (bool, error) {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("xbee serial: modem status: %w", err)
	}
	return bits.CTS, nil
}

// Close stops the reader and closes the port. It is safe to call more than once.
func (p *SerialPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.port.Close()
		p.wg.Wait()
	})
	return err
}

var _ Port = (*SerialPort)(nil)

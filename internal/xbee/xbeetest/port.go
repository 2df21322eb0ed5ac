// Package xbeetest provides an in-memory radio port for tests.
package xbeetest

import (
	"bytes"
	"math/rand/v2"
	"sync"
)

// Port is a non-blocking in-memory serial port. Bytes queued with Feed are
// returned by Read; bytes written are collected for inspection.
type Port struct {
	mu sync.Mutex

	rx      []byte
	tx      bytes.Buffer
	readErr error

	// MaxChunk, when > 0, caps the bytes returned by one Read. With Jitter
	// set, each Read returns a random 1..MaxChunk bytes.
	MaxChunk int
	rng      *rand.Rand

	cts    bool
	ctsErr error
	free   int
	used   int

	writeErr error
	writes   [][]byte
}

// NewPort returns a port with CTS asserted and a 256 byte transmit buffer.
func NewPort() *Port {
	return &Port{cts: true, free: 256}
}

// Jitter makes reads return random chunk sizes up to maxChunk, from a
// deterministic seed.
func (p *Port) Jitter(maxChunk int, seed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxChunk < 1 {
		maxChunk = 1
	}
	p.MaxChunk = maxChunk
	p.rng = rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)) //nolint:gosec // test data
}

// Feed queues bytes for Read.
func (p *Port) Feed(b ...byte) {
	p.mu.Lock()
	p.rx = append(p.rx, b...)
	p.mu.Unlock()
}

// FeedFrame queues a frame body wrapped in start byte, length and checksum.
func (p *Port) FeedFrame(body ...byte) {
	p.Feed(Frame(body...)...)
}

// Frame wraps body as an API frame.
func Frame(body ...byte) []byte {
	out := []byte{0x7E, byte(len(body) >> 8), byte(len(body))}
	out = append(out, body...)
	sum := byte(0xFF)
	for _, b := range body {
		sum -= b
	}
	return append(out, sum)
}

// Pending returns the number of bytes not yet read.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx)
}

// FailReads makes Read return err once the queued bytes are consumed.
func (p *Port) FailReads(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rx) == 0 {
		return 0, p.readErr
	}
	n := len(b)
	if p.MaxChunk > 0 {
		limit := p.MaxChunk
		if p.rng != nil {
			limit = 1 + p.rng.IntN(p.MaxChunk)
		}
		if n > limit {
			n = limit
		}
	}
	n = copy(b[:n], p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.tx.Write(b)
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

// Written returns every byte written so far.
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.tx.Bytes()...)
}

// Writes returns each Write call's bytes, in order.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Reset forgets written bytes.
func (p *Port) Reset() {
	p.mu.Lock()
	p.tx.Reset()
	p.writes = nil
	p.mu.Unlock()
}

// FailWrites makes Write return err.
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}

// SetCTS sets the clear-to-send line and the error CTS returns.
func (p *Port) SetCTS(on bool, err error) {
	p.mu.Lock()
	p.cts, p.ctsErr = on, err
	p.mu.Unlock()
}

// SetTxBuffer sets the values TxFree and TxUsed report.
func (p *Port) SetTxBuffer(free, used int) {
	p.mu.Lock()
	p.free, p.used = free, used
	p.mu.Unlock()
}

func (p *Port) TxFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free
}

func (p *Port) TxUsed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

func (p *Port) CTS() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cts, p.ctsErr
}

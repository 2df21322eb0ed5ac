package xbee

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"xbee-go-home/internal/xbee/xbeetest"
)

type collector struct {
	frames [][]byte
}

func (c *collector) dispatch(frame []byte) {
	c.frames = append(c.frames, append([]byte(nil), frame...))
}

func loadAll(t *testing.T, s *FrameSync, port *xbeetest.Port, c *collector) {
	t.Helper()
	for i := 0; port.Pending() > 0; i++ {
		if i > 10000 {
			t.Fatal("Load made no progress")
		}
		if _, err := s.Load(port, c.dispatch); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
}

func TestLoadSingleFrame(t *testing.T) {
	port := xbeetest.NewPort()
	port.Feed(0x7E, 0x00, 0x02, 0x8A, 0x06, 0x6F)

	var s FrameSync
	var c collector
	n, err := s.Load(port, c.dispatch)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 1 || len(c.frames) != 1 {
		t.Fatalf("dispatched %d frames, want 1", n)
	}
	if !bytes.Equal(c.frames[0], []byte{0x8A, 0x06}) {
		t.Errorf("frame = % X, want 8A 06", c.frames[0])
	}
}

func TestLoadBadChecksumDropped(t *testing.T) {
	good := xbeetest.Frame(0x8A, 0x02)
	body := []byte{0x91, 0x00, 0x13, 0xA2, 0x00, 0x40, 0x0A, 0x01, 0x27}
	for i := range body {
		frame := xbeetest.Frame(body...)
		frame[3+i] ^= 0x01

		port := xbeetest.NewPort()
		port.Feed(frame...)
		port.Feed(good...)

		var s FrameSync
		var c collector
		loadAll(t, &s, port, &c)
		if len(c.frames) != 1 || !bytes.Equal(c.frames[0], []byte{0x8A, 0x02}) {
			t.Errorf("corrupt byte %d: frames = %X, want only the good frame", i, c.frames)
		}
	}
}

func TestLoadResync(t *testing.T) {
	frame := xbeetest.Frame(0x8A, 0x06)
	tests := []struct {
		name   string
		prefix []byte
	}{
		{"noise", []byte{0x00, 0x11, 0x22}},
		{"double start", []byte{0x7E}},
		{"start then bad length with 0x7E low byte", []byte{0x7E, 0x01}},
		{"length too long", []byte{0x7E, 0x00, 0x93}},
		{"length too short", []byte{0x7E, 0x00, 0x01}},
		{"zero length", []byte{0x7E, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := xbeetest.NewPort()
			port.Feed(tt.prefix...)
			port.Feed(frame...)

			var s FrameSync
			var c collector
			loadAll(t, &s, port, &c)
			if len(c.frames) != 1 || !bytes.Equal(c.frames[0], []byte{0x8A, 0x06}) {
				t.Errorf("frames = %X, want [8A06]", c.frames)
			}
		})
	}
}

func TestLoadMaxLength(t *testing.T) {
	body := make([]byte, MaxFrameLen)
	body[0] = FrameReceiveExplicit
	port := xbeetest.NewPort()
	port.FeedFrame(body...)

	var s FrameSync
	var c collector
	loadAll(t, &s, port, &c)
	if len(c.frames) != 1 || len(c.frames[0]) != MaxFrameLen {
		t.Fatalf("max length frame not accepted")
	}

	port.FeedFrame(append(body, 0x00)...)
	port.FeedFrame(0x8A, 0x00)
	c.frames = nil
	loadAll(t, &s, port, &c)
	if len(c.frames) != 1 || c.frames[0][0] != 0x8A {
		t.Errorf("oversize frame accepted: %d frames", len(c.frames))
	}
}

func TestLoadPartialReads(t *testing.T) {
	var stream []byte
	want := [][]byte{
		{0x8A, 0x06},
		{0x8B, 0x01, 0xFF, 0xFE, 0x00, 0x00, 0x00},
		{0x88, 0x02, 'S', 'H', 0x00, 0x00, 0x13, 0xA2, 0x00},
	}
	for _, b := range want {
		stream = append(stream, xbeetest.Frame(b...)...)
	}

	check := func(name string, got [][]byte) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("%s: %d frames, want %d", name, len(got), len(want))
		}
		for i := range want {
			if !bytes.Equal(got[i], want[i]) {
				t.Errorf("%s frame %d = % X, want % X", name, i, got[i], want[i])
			}
		}
	}

	// one byte at a time, loading after each
	port := xbeetest.NewPort()
	var s FrameSync
	var c collector
	for _, b := range stream {
		port.Feed(b)
		loadAll(t, &s, port, &c)
	}
	check("bytewise", c.frames)

	// whole stream, random short reads
	for seed := uint64(1); seed <= 20; seed++ {
		port := xbeetest.NewPort()
		port.Jitter(3, seed)
		port.Feed(stream...)
		var s FrameSync
		var c collector
		loadAll(t, &s, port, &c)
		check(fmt.Sprintf("seed %d", seed), c.frames)
	}
}

func TestLoadDispatchLimit(t *testing.T) {
	port := xbeetest.NewPort()
	for i := 0; i < 7; i++ {
		port.FeedFrame(0x8A, byte(i))
	}
	var s FrameSync
	var c collector
	n, _ := s.Load(port, c.dispatch)
	if n != MaxDispatchPerTick {
		t.Fatalf("first Load = %d, want %d", n, MaxDispatchPerTick)
	}
	n, _ = s.Load(port, c.dispatch)
	if n != 2 {
		t.Fatalf("second Load = %d, want 2", n)
	}
	for i, f := range c.frames {
		if f[1] != byte(i) {
			t.Errorf("frame %d out of order: % X", i, f)
		}
	}
}

func TestLoadReadError(t *testing.T) {
	port := xbeetest.NewPort()
	port.FeedFrame(0x8A, 0x00)
	port.Feed(0x7E, 0x00)
	boom := errors.New("unplugged")
	port.FailReads(boom)

	var s FrameSync
	var c collector
	n, err := s.Load(port, c.dispatch)
	if n != 1 {
		t.Errorf("Load = %d, want 1", n)
	}
	if err != boom {
		t.Errorf("err = %v, want read error", err)
	}
}

func TestLoadInvalidStateResets(t *testing.T) {
	s := FrameSync{state: syncState(42)}
	port := xbeetest.NewPort()
	port.FeedFrame(0x8A, 0x03)
	var c collector
	if n, _ := s.Load(port, c.dispatch); n != 1 {
		t.Errorf("Load from invalid state = %d, want 1", n)
	}
}

func FuzzFrameSync(f *testing.F) {
	f.Add([]byte{0x7E, 0x00, 0x02, 0x8A, 0x06, 0x6F})
	f.Add([]byte{0x7E, 0x7E, 0x00, 0x02, 0x8A, 0x06, 0x6F})
	f.Add([]byte{0x7E, 0x01, 0x7E, 0x00, 0x02, 0x8A, 0x06, 0x6F})
	f.Add([]byte{0x7E, 0xFF, 0xFF})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		port := xbeetest.NewPort()
		port.Jitter(7, uint64(len(data))+1)
		port.Feed(data...)

		var s FrameSync
		for i := 0; port.Pending() > 0 && i < len(data)+1; i++ {
			_, _ = s.Load(port, func(frame []byte) {
				if len(frame) < 2 || len(frame) > MaxFrameLen {
					t.Fatalf("dispatched frame of length %d", len(frame))
				}
			})
		}
	})
}

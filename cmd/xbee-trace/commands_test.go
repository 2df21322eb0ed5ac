package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"xbee-go-home/internal/trace"
)

// writeCapture records two sessions and returns the path and session ids.
func writeCapture(t *testing.T) (string, []string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.cbor")
	var sessions []string
	for _, frames := range [][][]byte{
		{{0x08, 0x01, 'S', 'H'}, {0x88, 0x01, 'S', 'H', 0x00, 0x00, 0x13, 0xA2, 0x00}},
		{{0x8A, 0x06}, {0x8A, 0x02}},
	} {
		rec, err := trace.NewRecorder(path)
		if err != nil {
			t.Fatal(err)
		}
		rec.Record(trace.DirectionOut, frames[0])
		rec.Record(trace.DirectionIn, frames[1])
		sessions = append(sessions, rec.Session())
		if err := rec.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return path, sessions
}

func lines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

func TestRunViewFilters(t *testing.T) {
	path, sessions := writeCapture(t)

	tests := []struct {
		name  string
		flags filterFlags
		want  int
	}{
		{"all", filterFlags{}, 4},
		{"direction", filterFlags{direction: "in"}, 2},
		{"type", filterFlags{types: "0x8A"}, 2},
		{"types", filterFlags{types: "0x08, 136"}, 2},
		{"full session", filterFlags{session: sessions[0]}, 2},
		{"session prefix", filterFlags{session: sessions[1][:8]}, 2},
		{"since future", filterFlags{since: "2999-01-01T00:00:00Z"}, 0},
		{"combined", filterFlags{session: sessions[1], direction: "out", types: "0x8A"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := runView(path, tt.flags, &buf); err != nil {
				t.Fatal(err)
			}
			if got := len(lines(buf.String())); got != tt.want {
				t.Errorf("lines = %d, want %d:\n%s", got, tt.want, buf.String())
			}
		})
	}
}

func TestRunViewLine(t *testing.T) {
	path, _ := writeCapture(t)
	var buf bytes.Buffer
	if err := runView(path, filterFlags{types: "0x08"}, &buf); err != nil {
		t.Fatal(err)
	}
	line := buf.String()
	for _, want := range []string{"OUT", "LocalATCommand", "id=1", "08 01 53 48"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestRunExport(t *testing.T) {
	path, sessions := writeCapture(t)
	var buf bytes.Buffer
	if err := runExport(path, filterFlags{session: sessions[1]}, &buf); err != nil {
		t.Fatal(err)
	}
	got := lines(buf.String())
	if len(got) != 2 {
		t.Fatalf("exported %d records, want 2", len(got))
	}
	var rec exportRecord
	if err := json.Unmarshal([]byte(got[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Session != sessions[1] || rec.Direction != "out" || rec.FrameType != "0x8A" || rec.TypeName != "ModemStatus" || rec.Data != "8a06" {
		t.Errorf("record = %+v", rec)
	}
}

func TestRunStats(t *testing.T) {
	path, sessions := writeCapture(t)
	var buf bytes.Buffer
	if err := runStats(path, filterFlags{}, &buf); err != nil {
		t.Fatal(err)
	}
	out := lines(buf.String())
	// header, one row per session/direction/type, summary
	if len(out) != 6 {
		t.Fatalf("stats output:\n%s", buf.String())
	}
	if !strings.HasPrefix(out[len(out)-1], "4 frames from ") {
		t.Errorf("summary = %q", out[len(out)-1])
	}
	if !strings.Contains(buf.String(), sessions[0]) || !strings.Contains(buf.String(), "LocalATResponse") {
		t.Errorf("stats output:\n%s", buf.String())
	}

	buf.Reset()
	if err := runStats(path, filterFlags{types: "0x10"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "no frames\n") {
		t.Errorf("empty stats = %q", buf.String())
	}
}

func TestFilterFlagErrors(t *testing.T) {
	path, _ := writeCapture(t)
	for _, f := range []filterFlags{
		{direction: "sideways"},
		{types: "0x100"},
		{types: "rx"},
		{since: "yesterday"},
	} {
		if err := runView(path, f, &bytes.Buffer{}); err == nil {
			t.Errorf("%+v: expected error", f)
		}
	}
	if err := runView(filepath.Join(t.TempDir(), "missing.cbor"), filterFlags{}, &bytes.Buffer{}); err == nil {
		t.Error("missing file: expected error")
	}
}

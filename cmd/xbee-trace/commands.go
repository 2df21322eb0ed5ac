package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"xbee-go-home/internal/trace"
	"xbee-go-home/internal/xbee"
)

// filterFlags holds the raw filter flags shared by every command.
type filterFlags struct {
	session   string
	direction string
	types     string
	since     string
}

// selector combines a trace filter with a session prefix, which the trace
// reader cannot match on its own.
type selector struct {
	filter        trace.Filter
	sessionPrefix string
}

func (s selector) keep(e trace.Event) bool {
	return s.sessionPrefix == "" || strings.HasPrefix(e.Session, s.sessionPrefix)
}

func parseFrameTypes(s string) ([]uint8, error) {
	var types []uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("frame type %q: %w", part, err)
		}
		types = append(types, uint8(v))
	}
	return types, nil
}

func (f filterFlags) selector() (selector, error) {
	var sel selector
	if f.session != "" {
		if _, err := uuid.Parse(f.session); err == nil {
			sel.filter.Session = f.session
		} else {
			sel.sessionPrefix = f.session
		}
	}
	if f.direction != "" {
		d, err := trace.ParseDirection(f.direction)
		if err != nil {
			return sel, err
		}
		sel.filter.Direction = &d
	}
	types, err := parseFrameTypes(f.types)
	if err != nil {
		return sel, err
	}
	sel.filter.FrameTypes = types
	if f.since != "" {
		t, err := time.Parse(time.RFC3339, f.since)
		if err != nil {
			return sel, fmt.Errorf("since: %w", err)
		}
		sel.filter.Since = &t
	}
	return sel, nil
}

// each calls fn for every selected event of the capture at path.
func each(path string, f filterFlags, fn func(trace.Event) error) error {
	sel, err := f.selector()
	if err != nil {
		return err
	}
	r, err := trace.NewReader(path, sel.filter)
	if err != nil {
		return err
	}
	defer r.Close()
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !sel.keep(e) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

func runView(path string, f filterFlags, w io.Writer) error {
	return each(path, f, func(e trace.Event) error {
		_, err := fmt.Fprintln(w, e.String())
		return err
	})
}

type exportRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session"`
	Direction string    `json:"direction"`
	FrameType string    `json:"frame_type"`
	TypeName  string    `json:"type_name"`
	FrameID   uint8     `json:"frame_id,omitempty"`
	Data      string    `json:"data"`
}

func runExport(path string, f filterFlags, w io.Writer) error {
	enc := json.NewEncoder(w)
	return each(path, f, func(e trace.Event) error {
		return enc.Encode(exportRecord{
			Timestamp: e.Timestamp.UTC(),
			Session:   e.Session,
			Direction: strings.ToLower(e.Direction.String()),
			FrameType: fmt.Sprintf("0x%02X", e.FrameType),
			TypeName:  e.TypeName(),
			FrameID:   e.FrameID,
			Data:      hex.EncodeToString(e.Data),
		})
	})
}

type statsKey struct {
	session   string
	direction trace.Direction
	frameType uint8
}

func runStats(path string, f filterFlags, w io.Writer) error {
	counts := make(map[statsKey]int)
	var first, last time.Time
	total := 0
	err := each(path, f, func(e trace.Event) error {
		counts[statsKey{e.Session, e.Direction, e.FrameType}]++
		if total == 0 || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
		total++
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]statsKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.session != b.session {
			return a.session < b.session
		}
		if a.direction != b.direction {
			return a.direction < b.direction
		}
		return a.frameType < b.frameType
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tDIR\tTYPE\tNAME\tFRAMES")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t0x%02X\t%s\t%d\n", k.session, k.direction, k.frameType, xbee.FrameTypeName(k.frameType), counts[k])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total == 0 {
		_, err = fmt.Fprintln(w, "no frames")
		return err
	}
	_, err = fmt.Fprintf(w, "%d frames from %s to %s\n", total, first.Format(time.RFC3339), last.Format(time.RFC3339))
	return err
}

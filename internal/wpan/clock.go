package wpan

import "time"

// Clock supplies the seconds counter used for conversation deadlines. Only
// the low 16 bits are used, so any monotonic counter works.
type Clock interface {
	Seconds() uint32
}

// SystemClock counts monotonic seconds since it was created.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Seconds() uint32 {
	return uint32(time.Since(c.start) / time.Second)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) Seconds() uint32 { return f() }

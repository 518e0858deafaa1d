package logbuffer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry is one captured log line as served by the API.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// severity maps the level name to zerolog's order. Unknown names rank as
// NoLevel so they pass every threshold.
func (e LogEntry) severity() zerolog.Level {
	lvl, err := zerolog.ParseLevel(e.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel
	}
	return lvl
}

// RingBuffer keeps the most recent entries up to a fixed capacity.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []LogEntry
	next int
	full bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]LogEntry, capacity)}
}

func (rb *RingBuffer) Add(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buf[rb.next] = entry
	rb.next++
	if rb.next == len(rb.buf) {
		rb.next = 0
		rb.full = true
	}
}

func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.full {
		return len(rb.buf)
	}
	return rb.next
}

// Entries returns everything held, oldest first.
func (rb *RingBuffer) Entries() []LogEntry {
	return rb.Tail(zerolog.TraceLevel, 0)
}

// Tail returns up to limit of the newest entries at minLevel or above,
// oldest first. A limit of 0 means no limit.
func (rb *RingBuffer) Tail(minLevel zerolog.Level, limit int) []LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	ordered := rb.buf[:rb.next]
	if rb.full {
		ordered = append(append([]LogEntry(nil), rb.buf[rb.next:]...), rb.buf[:rb.next]...)
	}

	start := len(ordered)
	kept := 0
	for start > 0 && (limit == 0 || kept < limit) {
		start--
		if ordered[start].severity() >= minLevel {
			kept++
		}
	}

	out := make([]LogEntry, 0, kept)
	for _, e := range ordered[start:] {
		if e.severity() >= minLevel {
			out = append(out, e)
		}
	}
	return out
}

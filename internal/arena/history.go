package arena

import (
	"time"

	"hexarena.live/internal/protocol"
)

// MaxEvents bounds the history buffer. Oldest entries are dropped
// silently once full; the newest are always retained.
const MaxEvents = 500

// Entry is one recorded event in arrival order.
type Entry struct {
	Seq        uint64
	ReceivedAt time.Time
	Event      protocol.Event
}

// History is a fixed-capacity ring of entries.
type History struct {
	buf   []Entry
	start int
	n     int
	seq   uint64
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = MaxEvents
	}
	return &History{buf: make([]Entry, capacity)}
}

// Append records ev, evicting the oldest entry if the ring is full.
func (h *History) Append(ev protocol.Event, at time.Time) Entry {
	h.seq++
	e := Entry{Seq: h.seq, ReceivedAt: at, Event: ev}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = e
		h.n++
	} else {
		h.buf[h.start] = e
		h.start = (h.start + 1) % len(h.buf)
	}
	return e
}

func (h *History) Len() int { return h.n }

// Entries returns the retained events oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

package sequencer

import (
	"sync"
	"sync/atomic"

	"github.com/Lcchy/gisele"
)

type (
	// Broker is the message hub between the real-time context and the
	// control context. Channels are buffered and all sends from the
	// real-time side go through trySend, so a slow or absent consumer can
	// never block a cycle; it only makes messages get dropped and counted.
	//
	// The Broker also recycles event slices between the two sides: the
	// control side takes a slice from the pool when it materializes a new
	// buffer, and the real-time side returns the slice of a swapped-out
	// buffer. This keeps steady-state swaps free of garbage.
	Broker struct {
		ToControl chan MsgToControl

		eventsPool sync.Pool

		// Dropped counts messages discarded because a channel was full,
		// by destination. Read with atomic loads.
		DroppedToControl atomic.Uint64
		DroppedToLines   atomic.Uint64
		DroppedToRT      atomic.Uint64
	}

	// MsgToControl is what lines report back to whoever owns the Broker:
	// alerts and per-cycle statistics. Data is either an Alert or a
	// CycleStats.
	MsgToControl struct {
		Line int
		Data any
	}

	// CycleStats summarizes one completed loop cycle of a line. The mixer
	// samples these to drive modulation routes; the application can watch
	// them for observability.
	CycleStats struct {
		Generation   uint64
		Onsets       int
		MeanPitch    int
		MeanVelocity int
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToControl: make(chan MsgToControl, 256),
		eventsPool: sync.Pool{New: func() any {
			s := make(gisele.Events, 0, 256)
			return &s
		}},
	}
}

// GetEventsBuf returns a zero-length event slice from the pool.
func (b *Broker) GetEventsBuf() *gisele.Events {
	s := b.eventsPool.Get().(*gisele.Events)
	*s = (*s)[:0]
	return s
}

// PutEventsBuf returns an event slice to the pool. Callers must not hold
// on to the slice afterwards.
func (b *Broker) PutEventsBuf(s *gisele.Events) {
	if s != nil {
		b.eventsPool.Put(s)
	}
}

// trySend delivers msg without blocking. It reports whether the message
// was accepted; the caller is expected to bump the matching drop counter
// when it was not.
func trySend[T any](c chan<- T, msg T) bool {
	select {
	case c <- msg:
		return true
	default:
		return false
	}
}

func (b *Broker) toControl(line int, data any) {
	if !trySend(b.ToControl, MsgToControl{Line: line, Data: data}) {
		b.DroppedToControl.Add(1)
	}
}

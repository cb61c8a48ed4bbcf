package gisele

import (
	"fmt"
	"slices"
)

type (
	// EventKind tells whether an Event starts or ends a note.
	EventKind byte

	// Event is a timed note message inside one loop. Frame is the offset in
	// audio frames from the start of the loop. Events are small value structs
	// that are copied between buffer generations; they are never shared or
	// aliased between buffers.
	Event struct {
		Frame    uint32
		Kind     EventKind
		Channel  byte // 0..15
		Pitch    byte // 0..127
		Velocity byte // 0..127

		// Sustain marks a NoteOn held across the loop boundary. Its NoteOff
		// wraps to the beginning of the loop and is allowed to close a note
		// that the previous iteration left sounding.
		Sustain bool `yaml:",omitempty"`
	}

	// Events is a sequence of events for one loop, kept sorted by Frame with
	// NoteOff sorting before NoteOn at equal offsets, so that repeats of the
	// same pitch never overlap.
	Events []Event
)

const (
	NoteOff EventKind = iota
	NoteOn
)

func (k EventKind) String() string {
	if k == NoteOn {
		return "on"
	}
	return "off"
}

// Compare returns the total order of two events: ascending Frame, NoteOff
// before NoteOn at the same frame, then channel and pitch to keep the order
// fully deterministic.
func (e Event) Compare(o Event) int {
	if e.Frame != o.Frame {
		if e.Frame < o.Frame {
			return -1
		}
		return 1
	}
	if e.Kind != o.Kind {
		if e.Kind < o.Kind {
			return -1
		}
		return 1
	}
	if e.Channel != o.Channel {
		if e.Channel < o.Channel {
			return -1
		}
		return 1
	}
	if e.Pitch != o.Pitch {
		if e.Pitch < o.Pitch {
			return -1
		}
		return 1
	}
	return 0
}

func (e Event) key() int { return int(e.Channel)<<7 | int(e.Pitch) }

// Sort sorts the events into their canonical order.
func (s Events) Sort() {
	slices.SortStableFunc(s, Event.Compare)
}

// Copy makes a deep copy of the event sequence.
func (s Events) Copy() Events {
	ret := make(Events, len(s))
	copy(ret, s)
	return ret
}

// Validate checks the ordering and pairing invariants of one loop worth of
// events: events are sorted, frames are inside the loop, every NoteOn has a
// matching NoteOff later in the loop or carries the Sustain marker (in which
// case its NoteOff wraps to the start of the loop), and no NoteOff is
// orphaned. Returns a wrapped ErrInvariantViolation on the first violation.
func (s Events) Validate(loop LoopSpec) error {
	length := loop.LengthFrames()
	var open [16 * 128]int8
	wrapOffs := 0
	for i, e := range s {
		if e.Frame >= length && length > 0 {
			return fmt.Errorf("%w: event %d frame %d outside loop of %d frames", ErrInvariantViolation, i, e.Frame, length)
		}
		if i > 0 && s[i-1].Compare(e) > 0 {
			return fmt.Errorf("%w: events %d and %d out of order", ErrInvariantViolation, i-1, i)
		}
		switch e.Kind {
		case NoteOn:
			if open[e.key()] > 0 {
				return fmt.Errorf("%w: overlapping note on for pitch %d channel %d at frame %d", ErrInvariantViolation, e.Pitch, e.Channel, e.Frame)
			}
			open[e.key()]++
		case NoteOff:
			if open[e.key()] > 0 {
				open[e.key()]--
			} else {
				// an early NoteOff may only close a sustained note wrapping
				// from the previous loop iteration
				wrapOffs++
			}
		default:
			return fmt.Errorf("%w: unknown event kind %d", ErrInvariantViolation, e.Kind)
		}
	}
	sustained := 0
	for _, e := range s {
		if e.Kind == NoteOn && e.Sustain {
			if open[e.key()] == 0 {
				return fmt.Errorf("%w: sustain marker on pitch %d channel %d that ends inside the loop", ErrInvariantViolation, e.Pitch, e.Channel)
			}
			sustained++
		}
	}
	stillOpen := 0
	for _, c := range open {
		stillOpen += int(c)
	}
	if stillOpen != sustained {
		return fmt.Errorf("%w: %d unmatched note ons without sustain marker", ErrInvariantViolation, stillOpen-sustained)
	}
	if wrapOffs != sustained {
		return fmt.Errorf("%w: %d orphaned note offs for %d sustained notes", ErrInvariantViolation, wrapOffs, sustained)
	}
	return nil
}

// notePair ties a NoteOn to its NoteOff by index. wrapped means the NoteOff
// is at the start of the loop, closing a sustained note.
type notePair struct {
	on, off int
	wrapped bool
}

// pairNotes matches every NoteOn of a sorted sequence with its NoteOff.
// NoteOffs are matched to the oldest open NoteOn of the same pitch and
// channel; NoteOffs arriving before any NoteOn close sustained notes wrapping
// from the previous loop iteration. Returns a wrapped ErrInvariantViolation
// if the sequence cannot be fully paired.
func (s Events) pairNotes() ([]notePair, error) {
	pairs := make([]notePair, 0, len(s)/2)
	openOn := make(map[int][]int)  // key -> indices of unmatched NoteOns
	wrapOff := make(map[int][]int) // key -> indices of early unmatched NoteOffs
	for i, e := range s {
		switch e.Kind {
		case NoteOn:
			openOn[e.key()] = append(openOn[e.key()], i)
		case NoteOff:
			if ons := openOn[e.key()]; len(ons) > 0 {
				pairs = append(pairs, notePair{on: ons[0], off: i})
				openOn[e.key()] = ons[1:]
			} else {
				wrapOff[e.key()] = append(wrapOff[e.key()], i)
			}
		}
	}
	for key, ons := range openOn {
		offs := wrapOff[key]
		if len(ons) != len(offs) {
			return nil, fmt.Errorf("%w: %d unmatched note ons vs %d wrapping note offs for key %d", ErrInvariantViolation, len(ons), len(offs), key)
		}
		for i, on := range ons {
			if !s[on].Sustain {
				return nil, fmt.Errorf("%w: note on at frame %d wraps without sustain marker", ErrInvariantViolation, s[on].Frame)
			}
			pairs = append(pairs, notePair{on: on, off: offs[i], wrapped: true})
		}
		delete(wrapOff, key)
	}
	for _, offs := range wrapOff {
		if len(offs) > 0 {
			return nil, fmt.Errorf("%w: %d orphaned note offs", ErrInvariantViolation, len(offs))
		}
	}
	return pairs, nil
}

// clipOverlaps resolves overlapping notes of the same pitch and channel by
// pulling the earlier NoteOff back to the frame of the overlapping NoteOn; at
// equal frames NoteOff sorts first, so the note closes just before the
// retrigger. Duplicate onsets at the same frame are dropped. The receiver
// must be sorted; a freshly sorted sequence is returned.
func (s Events) clipOverlaps() Events {
	type keyPair struct {
		on, off Event
		ok      bool
	}
	byKey := make(map[int][]keyPair)
	openOn := make(map[int][]int)
	wrapOffs := make(map[int][]Event)
	order := make([]int, 0, 16)
	for i, e := range s {
		k := e.key()
		switch e.Kind {
		case NoteOn:
			openOn[k] = append(openOn[k], i)
		case NoteOff:
			if ons := openOn[k]; len(ons) > 0 {
				if _, seen := byKey[k]; !seen {
					order = append(order, k)
				}
				byKey[k] = append(byKey[k], keyPair{on: s[ons[0]], off: e, ok: true})
				openOn[k] = ons[1:]
			} else {
				// early off of a sustained note wrapping from the previous
				// iteration, re-paired below
				wrapOffs[k] = append(wrapOffs[k], e)
			}
		}
	}
	for k, ons := range openOn {
		for _, on := range ons {
			if s[on].Sustain {
				if _, seen := byKey[k]; !seen {
					order = append(order, k)
				}
				off := s[on]
				off.Kind = NoteOff
				off.Sustain = false
				off.Frame = 0
				if offs := wrapOffs[k]; len(offs) > 0 {
					off = offs[0]
					wrapOffs[k] = offs[1:]
				}
				byKey[k] = append(byKey[k], keyPair{on: s[on], off: off, ok: true})
			}
		}
	}
	ret := make(Events, 0, len(s))
	for _, k := range order {
		pairs := byKey[k]
		slices.SortStableFunc(pairs, func(a, b keyPair) int { return a.on.Compare(b.on) })
		for i := range pairs {
			if !pairs[i].ok {
				continue
			}
			for j := i + 1; j < len(pairs); j++ {
				if !pairs[j].ok {
					continue
				}
				if pairs[j].on.Frame == pairs[i].on.Frame {
					pairs[j].ok = false // duplicate onset
					continue
				}
				if !pairs[i].on.Sustain && pairs[i].off.Frame > pairs[j].on.Frame {
					pairs[i].off.Frame = pairs[j].on.Frame
				}
				break
			}
			ret = append(ret, pairs[i].on, pairs[i].off)
		}
	}
	ret.Sort()
	return ret
}

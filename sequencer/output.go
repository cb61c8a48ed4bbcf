package sequencer

import "github.com/Lcchy/gisele"

type (
	// TimedEvent is an event stamped with the absolute frame at which it
	// falls, counted from the start of the process loop. Loop-relative
	// frames never leave the engine.
	TimedEvent struct {
		Frame uint64
		Event gisele.Event
	}

	// Output receives the merged events of one process cycle, sorted by
	// absolute frame. The slice is reused between cycles; implementations
	// must not retain it past the call.
	Output interface {
		Emit(events []TimedEvent)
	}
)

// soundingSet tracks which (channel, pitch) pairs currently have a
// NoteOn without a matching NoteOff, one 128-bit row per channel. When a
// line stops or swaps buffers it walks the set to force a NoteOff for
// every sounding note, so no note can get stuck.
type soundingSet [16][2]uint64

func (s *soundingSet) set(channel, pitch byte) {
	s[channel&15][pitch>>6] |= 1 << (pitch & 63)
}

func (s *soundingSet) clear(channel, pitch byte) {
	s[channel&15][pitch>>6] &^= 1 << (pitch & 63)
}

func (s *soundingSet) reset() {
	*s = soundingSet{}
}

// forEach calls f for every sounding (channel, pitch) pair.
func (s *soundingSet) forEach(f func(channel, pitch byte)) {
	for ch := range s {
		for half := range s[ch] {
			bits := s[ch][half]
			for bits != 0 {
				p := 0
				for bits&(1<<p) == 0 {
					p++
				}
				bits &^= 1 << p
				f(byte(ch), byte(half*64+p))
			}
		}
	}
}

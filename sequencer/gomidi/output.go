package gomidi

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/Lcchy/gisele"
	"github.com/Lcchy/gisele/sequencer"
)

// Emit implements sequencer.Output by sending every event of the block
// to the open output port. A failed send drops that event; the process
// loop is never blocked or aborted by the port.
func (c *RTMIDIContext) Emit(events []sequencer.TimedEvent) {
	if c.send == nil {
		return
	}
	for _, te := range events {
		e := te.Event
		var msg midi.Message
		if e.Kind == gisele.NoteOn {
			msg = midi.NoteOn(e.Channel, e.Pitch, e.Velocity)
		} else {
			msg = midi.NoteOff(e.Channel, e.Pitch)
		}
		c.send(msg)
	}
}

// Seed folds the notes captured from the input port since the last call
// into a single seed value. It reports false when no notes arrived, so
// the caller can keep its current seed.
func (c *RTMIDIContext) Seed() (int64, bool) {
	var seed int64
	n := 0
	for {
		select {
		case note := <-c.notes:
			packed := int64(note.key)<<14 | int64(note.velocity)<<7 | int64(note.channel)
			seed = seed*1000003 + packed
			n++
		default:
			return seed, n > 0
		}
	}
}

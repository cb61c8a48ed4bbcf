package gisele

import "math/rand"

// generateRandom scatters the configured number of notes uniformly over the
// loop, with pitches drawn from the diatonic scale on the root note within
// span semitones above it, and velocity and length drawn from the common
// normal distributions. The events parameter is the density control: 0 is
// silence.
func generateRandom(b *BaseSeq, loop LoopSpec, rng *rand.Rand) Events {
	count := b.Param("events")
	if count == 0 {
		return nil
	}
	root := clampPitch(b.Param("root"))
	channel := byte(b.Param("channel"))
	degrees := degreeOf(root, clampPitch(b.Param("root")+b.Param("span"))) + 1
	if degrees < 1 {
		degrees = 1
	}
	loopLen := loop.LengthFrames()
	var events Events
	for i := 0; i < count; i++ {
		pitch := scaleDegree(root, rng.Intn(degrees))
		frame := uint32(rng.Int63n(int64(loopLen)))
		events = appendNote(events, loop,
			frame, noteLength(b, loop, rng),
			pitch, noteVelocity(b, rng), channel)
	}
	return events
}

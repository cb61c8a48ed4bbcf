package gisele

import (
	"errors"
	"fmt"
	"math"
)

// NoteLenTicks is the resolution of note length and timing parameters: the
// number of ticks in one bar. Frame positions are derived from ticks and the
// loop's frame rate, so parameter values stay small integers while playback
// stays frame accurate.
const NoteLenTicks = 128

// LoopSpec defines the length and time base of one sequencer loop. All frame
// counts are derived from it; changing LengthBars or BPM invalidates any
// event buffer computed against it.
type LoopSpec struct {
	LengthBars  int
	BPM         float64
	BeatsPerBar int
	SampleRate  int
}

// DefaultLoop is the loop every new line starts from: four bars of 4/4 at 120
// BPM, 44.1 kHz.
var DefaultLoop = LoopSpec{LengthBars: 4, BPM: 120, BeatsPerBar: 4, SampleRate: 44100}

func (l LoopSpec) Validate() error {
	if l.LengthBars < 1 {
		return fmt.Errorf("%w: loop length %d bars, should be >= 1", ErrInvalidParameter, l.LengthBars)
	}
	if l.BPM <= 0 || math.IsNaN(l.BPM) || math.IsInf(l.BPM, 0) {
		return fmt.Errorf("%w: BPM %f, should be > 0", ErrInvalidParameter, l.BPM)
	}
	if l.BeatsPerBar < 1 {
		return fmt.Errorf("%w: %d beats per bar, should be >= 1", ErrInvalidParameter, l.BeatsPerBar)
	}
	if l.SampleRate < 1 {
		return errors.New("sample rate should be >= 1")
	}
	return nil
}

// FramesPerBar returns the number of audio frames in one bar.
func (l LoopSpec) FramesPerBar() uint32 {
	return uint32(math.Round(float64(l.SampleRate) * 60 / l.BPM * float64(l.BeatsPerBar)))
}

// LengthFrames returns the total number of frames in the loop.
func (l LoopSpec) LengthFrames() uint32 {
	return l.FramesPerBar() * uint32(l.LengthBars)
}

// StepFrame returns the frame of step i when the loop is divided into steps
// equal divisions. Integer arithmetic keeps equal inputs byte-identical.
func (l LoopSpec) StepFrame(i, steps int) uint32 {
	if steps <= 0 {
		return 0
	}
	return uint32(uint64(l.LengthFrames()) * uint64(i) / uint64(steps))
}

// TickFrames converts a duration in ticks (see NoteLenTicks) to frames. The
// result is clamped to at least one frame so a note is never zero length.
func (l LoopSpec) TickFrames(ticks int) uint32 {
	f := uint64(l.FramesPerBar()) * uint64(ticks) / NoteLenTicks
	if f < 1 {
		return 1
	}
	if max := uint64(l.LengthFrames()) - 1; f > max {
		return uint32(max)
	}
	return uint32(f)
}

package gisele

import (
	"math"
	"math/rand"
)

// jitterCell offsets the timing, velocity and length of every note by draws
// from a gaussian (or, with poisson set, poisson) distribution. Offsets are
// applied to whole notes, never to a NoteOn and its NoteOff independently,
// and the result is clipped back into the loop so the ordering invariants
// hold.
type jitterCell struct {
	config CellConfig
	rng    *rand.Rand
}

func (c *jitterCell) Kind() string { return c.config.Kind }

func (c *jitterCell) SetParam(name string, value int) error {
	return c.config.SetParam(name, value)
}

func (c *jitterCell) Perturb(base Events, loop LoopSpec) (Events, error) {
	pairs, err := base.pairNotes()
	if err != nil {
		return nil, err
	}
	timingDev := float64(c.config.Param("timingdev"))
	velocityDev := float64(c.config.Param("velocitydev"))
	lengthDev := float64(c.config.Param("lengthdev"))
	loopLen := loop.LengthFrames()
	ret := make(Events, 0, len(base))
	for _, pair := range pairs {
		on, off := base[pair.on], base[pair.off]
		span := off.Frame - on.Frame
		if pair.wrapped {
			span = loopLen - on.Frame + off.Frame
		}
		frame := int64(on.Frame) + c.tickDraw(timingDev, loop)
		length := int64(span) + c.tickDraw(lengthDev, loop)
		velocity := int(on.Velocity) + int(c.draw(velocityDev))
		if frame < 0 {
			frame += int64(loopLen)
		}
		ret = appendNote(ret, loop,
			uint32(frame%int64(loopLen)), uint32(max64(1, length)),
			on.Pitch, clampVelocity(velocity), on.Channel)
	}
	ret.Sort()
	return ret.clipOverlaps(), nil
}

// draw samples one offset: zero-mean gaussian with the given deviation, or a
// centered poisson draw with that mean in poisson mode.
func (c *jitterCell) draw(dev float64) int64 {
	if dev == 0 {
		return 0
	}
	if c.config.Param("poisson") != 0 {
		return int64(poissonDraw(c.rng, dev)) - int64(dev)
	}
	return int64(math.Round(c.rng.NormFloat64() * dev))
}

func (c *jitterCell) tickDraw(dev float64, loop LoopSpec) int64 {
	ticks := c.draw(dev)
	sign := int64(1)
	if ticks < 0 {
		sign, ticks = -1, -ticks
	}
	if ticks == 0 {
		return 0
	}
	return sign * int64(loop.TickFrames(int(ticks)))
}

// poissonDraw is the Knuth multiplication method; the means used here stay
// well below the range where it loses precision.
func poissonDraw(rng *rand.Rand, mean float64) int {
	l := math.Exp(-mean)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

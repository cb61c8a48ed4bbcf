package gisele

import "math/rand"

// bjorklund distributes pulses as evenly as possible over steps, the
// euclidean rhythm construction of Toussaint's Banff paper. True means a
// pulse on that step.
func bjorklund(pulses, steps int) []bool {
	if steps <= 0 {
		return nil
	}
	if pulses > steps {
		pulses = steps
	}
	head := make([][]bool, pulses)
	for i := range head {
		head[i] = []bool{true}
	}
	tail := make([][]bool, steps-pulses)
	for i := range tail {
		tail[i] = []bool{false}
	}
	for {
		if len(head) == 0 {
			return concat(tail)
		}
		var newHead [][]bool
		for len(tail) > 0 && len(head) > 0 {
			t := tail[len(tail)-1]
			tail = tail[:len(tail)-1]
			h := head[len(head)-1]
			head = head[:len(head)-1]
			newHead = append(newHead, append(append([]bool{}, h...), t...))
		}
		if len(tail) == 0 && len(head) > 0 {
			tail = head
		}
		if len(tail) <= 1 {
			return append(concat(newHead), concat(tail)...)
		}
		head = newHead
	}
}

func concat(groups [][]bool) []bool {
	var ret []bool
	for _, g := range groups {
		ret = append(ret, g...)
	}
	return ret
}

// generateEuclid places one note of the root pitch on every pulse of the
// euclidean rhythm, rotated by the rotation parameter. pulses > steps clamps
// to steps; steps == 0 yields silence.
func generateEuclid(b *BaseSeq, loop LoopSpec, rng *rand.Rand) Events {
	steps := b.Param("steps")
	if steps == 0 {
		return nil
	}
	rhythm := bjorklund(b.Param("pulses"), steps)
	rotation := b.Param("rotation") % steps
	root := clampPitch(b.Param("root"))
	channel := byte(b.Param("channel"))
	var events Events
	for i, pulse := range rhythm {
		if !pulse {
			continue
		}
		step := (i + rotation) % steps
		events = appendNote(events, loop,
			loop.StepFrame(step, steps), noteLength(b, loop, rng),
			root, noteVelocity(b, rng), channel)
	}
	return events
}

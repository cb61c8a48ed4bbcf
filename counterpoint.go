package gisele

import "math/rand"

// Interval rule sets for the counterpoint generator, selected by the rules
// parameter: 0 allows any consonance, 1 additionally forbids parallel perfect
// consonances, 2 also prefers contrary motion.
const (
	rulesFree = iota
	rulesNoParallelPerfect
	rulesStrict
)

// consonances above the cantus, in scale degrees: third, fifth, sixth, octave.
var consonantDegrees = [4]int{2, 4, 5, 7}

func isPerfect(degree int) bool { return degree == 4 || degree == 7 }

// generateCounterpoint writes a first-species texture: a cantus firmus of one
// whole note per bar moving stepwise on the scale, with up to three upper
// voices holding a consonant interval against it per bar. Each voice plays on
// its own channel above the generator's channel so that simultaneous voices
// never collide on the same pitch and channel.
func generateCounterpoint(b *BaseSeq, loop LoopSpec, rng *rand.Rand) Events {
	root := clampPitch(b.Param("root"))
	channel := b.Param("channel")
	voices := b.Param("voices")
	rules := b.Param("rules")
	bars := loop.LengthBars
	barFrames := loop.FramesPerBar()
	noteLen := barFrames - barFrames/16 // leave a breath before the next bar

	// cantus firmus: random walk on scale degrees, stepwise with occasional
	// thirds, starting and ending on the root degree
	cantus := make([]int, bars)
	cur := 0
	for i := range cantus {
		if i == 0 || i == bars-1 {
			cantus[i] = 0
			cur = 0
			continue
		}
		step := rng.Intn(5) - 2 // -2..2 scale degrees
		if step == 0 {
			step = 1
		}
		cur += step
		if cur < -3 {
			cur = -3
		}
		if cur > 7 {
			cur = 7
		}
		cantus[i] = cur
	}

	var events Events
	addNote := func(bar, degree, voice int) {
		events = appendNote(events, loop,
			uint32(bar)*barFrames, noteLen,
			scaleDegree(root, degree), noteVelocity(b, rng), byte((channel+voice)%16))
	}
	for bar, degree := range cantus {
		addNote(bar, degree, 0)
	}
	prev := make([]int, voices) // previous interval degree per upper voice
	for v := 1; v < voices; v++ {
		for bar, cantusDegree := range cantus {
			choices := consonantDegrees
			interval := choices[rng.Intn(len(choices))]
			if rules >= rulesNoParallelPerfect && bar > 0 && isPerfect(interval) && interval == prev[v] {
				interval = choices[(rng.Intn(len(choices)-1)+1+indexOfDegree(interval))%len(choices)]
			}
			if rules >= rulesStrict && bar > 0 && cantusDegree > cantus[bar-1] && interval >= prev[v] {
				// contrary motion: cantus rose, pull the voice down
				interval = choices[0]
			}
			prev[v] = interval
			addNote(bar, cantusDegree+interval+(v-1)*7, v)
		}
	}
	return events
}

func indexOfDegree(degree int) int {
	for i, d := range consonantDegrees {
		if d == degree {
			return i
		}
	}
	return 0
}

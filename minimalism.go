package gisele

import "math/rand"

// generateMinimalism builds a short melodic cell from the seed and repeats it
// across the loop, shifting each repetition by the phase parameter, the
// additive phasing process of minimalist process music. celllength is the
// cell duration in 16th steps of a bar, cellnotes the number of notes in the
// cell and phase the shift in 16th steps accrued per repetition.
func generateMinimalism(b *BaseSeq, loop LoopSpec, rng *rand.Rand) Events {
	cellSteps := b.Param("celllength")
	notes := b.Param("cellnotes")
	if notes > cellSteps {
		notes = cellSteps
	}
	totalSteps := loop.LengthBars * 16
	if cellSteps > totalSteps {
		cellSteps = totalSteps
	}
	root := clampPitch(b.Param("root"))
	channel := byte(b.Param("channel"))

	// the cell itself: which of the cellSteps carry a note, and on which
	// scale degree
	type cellNote struct {
		step   int
		degree int
	}
	perm := rng.Perm(cellSteps)[:notes]
	cell := make([]cellNote, notes)
	for i, step := range perm {
		cell[i] = cellNote{step: step, degree: rng.Intn(8)}
	}

	phase := b.Param("phase")
	var events Events
	for rep := 0; rep*cellSteps < totalSteps; rep++ {
		base := rep * cellSteps
		shift := rep * phase
		for _, n := range cell {
			step := (base + n.step + shift) % totalSteps
			events = appendNote(events, loop,
				loop.StepFrame(step, totalSteps), noteLength(b, loop, rng),
				scaleDegree(root, n.degree), noteVelocity(b, rng), channel)
		}
	}
	return events
}

package gisele

// Generators quantize their pitches to a diatonic (ionian) scale built on the
// line's root note, the same harmonic grid for every stochastic choice so
// that reseeding stays inside the key.

var ionianIntervals = [7]int{0, 2, 4, 5, 7, 9, 11}

// scaleDegree returns the pitch of the given scale degree relative to root.
// Degrees outside 0..6 select other octaves; the result is clamped to the
// MIDI range.
func scaleDegree(root byte, degree int) byte {
	octave := degree / 7
	step := degree % 7
	if step < 0 {
		step += 7
		octave--
	}
	return clampPitch(int(root) + octave*12 + ionianIntervals[step])
}

// degreeOf returns the scale degree closest to pitch on the scale rooted at
// root, so that scaleDegree(root, degreeOf(root, p)) is the nearest scale
// tone of p.
func degreeOf(root byte, pitch byte) int {
	rel := int(pitch) - int(root)
	octave := rel / 12
	step := rel % 12
	if step < 0 {
		step += 12
		octave--
	}
	best, bestDist := 0, 128
	for i, iv := range ionianIntervals {
		d := step - iv
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return octave*7 + best
}

func clampPitch(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return byte(v)
}

func clampVelocity(v int) byte {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return byte(v)
}

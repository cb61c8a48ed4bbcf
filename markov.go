package gisele

import (
	"math/rand"
	"slices"
)

// markovCell substitutes pitches and durations by draws from transition
// tables keyed on a recent-history window. The tables are learned from the
// base pattern itself every cycle, so the substitutions stay inside the
// pattern's own vocabulary while reshuffling its order.
type markovCell struct {
	config CellConfig
	rng    *rand.Rand
}

type transitionTable map[string][]int

func (c *markovCell) Kind() string { return c.config.Kind }

func (c *markovCell) SetParam(name string, value int) error {
	return c.config.SetParam(name, value)
}

func (c *markovCell) Perturb(base Events, loop LoopSpec) (Events, error) {
	pairs, err := base.pairNotes()
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return base.Copy(), nil
	}
	window := c.config.Param("window")
	strength := c.config.Param("strength")
	loopLen := loop.LengthFrames()

	// order pairs by onset so history windows follow playback order
	onsets := make([]int, len(pairs))
	for i := range pairs {
		onsets[i] = i
	}
	slices.SortStableFunc(onsets, func(a, b int) int {
		return int(base[pairs[a].on].Frame) - int(base[pairs[b].on].Frame)
	})

	pitchTable := make(transitionTable)
	durTable := make(transitionTable)
	history := make([]byte, 0, window)
	for _, pi := range onsets {
		on, off := base[pairs[pi].on], base[pairs[pi].off]
		key := historyKey(history)
		pitchTable[key] = append(pitchTable[key], int(on.Pitch))
		dur := off.Frame - on.Frame
		if pairs[pi].wrapped {
			dur = loopLen - on.Frame + off.Frame
		}
		durTable[key] = append(durTable[key], int(dur))
		history = pushHistory(history, on.Pitch, window)
	}

	ret := make(Events, 0, len(base))
	history = history[:0]
	for _, pi := range onsets {
		on, off := base[pairs[pi].on], base[pairs[pi].off]
		dur := off.Frame - on.Frame
		if pairs[pi].wrapped {
			dur = loopLen - on.Frame + off.Frame
		}
		pitch := on.Pitch
		if c.rng.Intn(128) < strength {
			key := historyKey(history)
			if cands := pitchTable[key]; len(cands) > 0 {
				pitch = byte(cands[c.rng.Intn(len(cands))])
			}
			if cands := durTable[key]; len(cands) > 0 {
				dur = uint32(cands[c.rng.Intn(len(cands))])
			}
		}
		ret = appendNote(ret, loop, on.Frame, dur, pitch, on.Velocity, on.Channel)
		history = pushHistory(history, pitch, window)
	}
	ret.Sort()
	return ret.clipOverlaps(), nil
}

func historyKey(history []byte) string { return string(history) }

func pushHistory(history []byte, pitch byte, window int) []byte {
	history = append(history, pitch)
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}


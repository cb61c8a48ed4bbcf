package gisele

import "fmt"

// EffectTypes documents all the available effect kinds and what parameters
// they take. Effects are pure transforms applied to a generated sequence in
// the declared chain order; retrigger is the only one that changes the event
// count.
var EffectTypes = map[string][]Parameter{
	"invert": {
		{Name: "pivot", MinValue: 0, MaxValue: 127, Default: 60, CanModulate: true},
		{Name: "pitchclass", MinValue: 0, MaxValue: 1, Default: 1},
	},
	"retrigger": {
		{Name: "repeats", MinValue: 1, MaxValue: 16, Default: 4, CanModulate: true},
		{Name: "geometric", MinValue: 0, MaxValue: 1, Default: 0},
	},
	"pitchshift": {
		{Name: "semitones", MinValue: -64, MaxValue: 64, Default: 0, CanModulate: true},
		{Name: "policy", MinValue: 0, MaxValue: 2, Default: PolicyClamp},
		{Name: "lowest", MinValue: 0, MaxValue: 127, Default: 0},
		{Name: "highest", MinValue: 0, MaxValue: 127, Default: 127},
	},
}

// Clamping policies of the pitchshift effect at the instrument range
// boundaries.
const (
	PolicyClamp = iota // pin to the boundary
	PolicyDrop         // drop notes shifted outside the range
	PolicyFold         // fold back by octaves until inside the range
)

// EffectConfig is one entry of a line's effect chain.
type EffectConfig struct {
	Kind       string
	Parameters map[string]int `yaml:",flow"`
}

func (e *EffectConfig) Copy() EffectConfig {
	parameters := make(map[string]int, len(e.Parameters))
	for k, v := range e.Parameters {
		parameters[k] = v
	}
	return EffectConfig{Kind: e.Kind, Parameters: parameters}
}

func (e *EffectConfig) Param(name string) int {
	if v, ok := e.Parameters[name]; ok {
		return v
	}
	for _, p := range EffectTypes[e.Kind] {
		if p.Name == name {
			return p.Default
		}
	}
	return 0
}

func (e *EffectConfig) SetParam(name string, value int) error {
	if err := checkParam(EffectTypes[e.Kind], e.Kind, name, value); err != nil {
		return err
	}
	if e.Parameters == nil {
		e.Parameters = make(map[string]int)
	}
	e.Parameters[name] = value
	return nil
}

// ApplyChain runs the events through every effect of the chain in order. The
// input is not mutated; each effect returns a fresh sequence satisfying the
// ordering and pairing invariants.
func ApplyChain(chain []EffectConfig, events Events, loop LoopSpec) (Events, error) {
	out := events.Copy()
	for i := range chain {
		var err error
		switch chain[i].Kind {
		case "invert":
			out = applyInvert(&chain[i], out)
		case "retrigger":
			out, err = applyRetrigger(&chain[i], out, loop)
		case "pitchshift":
			out = applyPitchShift(&chain[i], out)
		default:
			err = fmt.Errorf("%w: unknown effect kind %q", ErrInvalidParameter, chain[i].Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s): %w", i, chain[i].Kind, err)
		}
	}
	out.Sort()
	out = out.clipOverlaps()
	if err := out.Validate(loop); err != nil {
		return nil, err
	}
	return out, nil
}

// applyInvert mirrors every pitch around the pivot. In pitchclass mode the
// reflection happens on the pitch-class circle and the result is placed in
// the octave closest to the original pitch, so melodies invert without
// leaping registers.
func applyInvert(cfg *EffectConfig, events Events) Events {
	pivot := cfg.Param("pivot")
	pitchClass := cfg.Param("pitchclass") != 0
	for i := range events {
		p := int(events[i].Pitch)
		if !pitchClass {
			events[i].Pitch = clampPitch(2*pivot - p)
			continue
		}
		pc := mod(2*(pivot%12)-p%12, 12)
		// choose the octave placement nearest to the original pitch
		base := p - p%12
		best := base + pc
		for _, cand := range [3]int{base + pc - 12, base + pc, base + pc + 12} {
			if abs(cand-p) < abs(best-p) {
				best = cand
			}
		}
		events[i].Pitch = clampPitch(best)
	}
	return events
}

// applyRetrigger splits every note into repeats sub-notes covering exactly
// the original span, evenly or with geometrically halving lengths. Sub-notes
// of the same pitch meet exactly at their boundary frames, where NoteOff
// sorts before NoteOn, so they never overlap.
func applyRetrigger(cfg *EffectConfig, events Events, loop LoopSpec) (Events, error) {
	pairs, err := events.pairNotes()
	if err != nil {
		return nil, err
	}
	repeats := cfg.Param("repeats")
	geometric := cfg.Param("geometric") != 0
	loopLen := loop.LengthFrames()
	ret := make(Events, 0, len(events)*repeats)
	for _, pair := range pairs {
		on, off := events[pair.on], events[pair.off]
		span := off.Frame - on.Frame
		if pair.wrapped {
			span = loopLen - on.Frame + off.Frame
		}
		k := uint32(repeats)
		if k > span {
			k = span // at least one frame per sub-note
		}
		if k <= 1 {
			ret = append(ret, on, off)
			continue
		}
		start := on.Frame
		remaining := span
		for i := uint32(0); i < k; i++ {
			length := remaining / (k - i)
			if geometric && i < k-1 {
				length = remaining / 2
				if minLen := uint32(k - i - 1); remaining-length < minLen {
					length = remaining - minLen
				}
			}
			ret = appendNote(ret, loop, start, length, on.Pitch, on.Velocity, on.Channel)
			start = (start + length) % loopLen
			remaining -= length
		}
	}
	ret.Sort()
	return ret, nil
}

// applyPitchShift offsets every pitch by semitones, handling range boundary
// crossings per the configured policy. With PolicyDrop both events of a
// dropped note are removed to keep the pairing invariant.
func applyPitchShift(cfg *EffectConfig, events Events) Events {
	semitones := cfg.Param("semitones")
	policy := cfg.Param("policy")
	lowest, highest := cfg.Param("lowest"), cfg.Param("highest")
	if lowest > highest {
		lowest, highest = highest, lowest
	}
	ret := make(Events, 0, len(events))
	for _, e := range events {
		p := int(e.Pitch) + semitones
		if p < lowest || p > highest {
			switch policy {
			case PolicyDrop:
				continue
			case PolicyFold:
				for p < lowest {
					p += 12
				}
				for p > highest {
					p -= 12
				}
				if p < lowest {
					p = lowest
				}
			default:
				if p < lowest {
					p = lowest
				} else {
					p = highest
				}
			}
		}
		e.Pitch = clampPitch(p)
		ret = append(ret, e)
	}
	return ret
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

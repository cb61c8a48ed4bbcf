package gisele

import (
	"fmt"
	"math/rand"
)

// Parameter documents one parameter that a generator, effect or cell takes.
type Parameter struct {
	Name        string // key in the Parameters map
	MinValue    int    // minimum value, inclusive
	MaxValue    int    // maximum value, inclusive
	Default     int    // value assumed when the key is absent
	CanModulate bool   // if another line's modulation output may target it
}

var commonGeneratorParams = []Parameter{
	{Name: "root", MinValue: 0, MaxValue: 127, Default: 60, CanModulate: true},
	{Name: "channel", MinValue: 0, MaxValue: 15, Default: 0},
	{Name: "velocity", MinValue: 1, MaxValue: 127, Default: 100, CanModulate: true},
	{Name: "velocitydev", MinValue: 0, MaxValue: 64, Default: 5, CanModulate: true},
	{Name: "notelen", MinValue: 1, MaxValue: 4 * NoteLenTicks, Default: 32, CanModulate: true},
	{Name: "notelendev", MinValue: 0, MaxValue: NoteLenTicks, Default: 0, CanModulate: true},
}

// GeneratorTypes documents all the available base sequence generator kinds
// and what parameters they take. Every kind also takes the common parameters
// root, channel, velocity, velocitydev, notelen and notelendev (lengths in
// ticks, see NoteLenTicks).
var GeneratorTypes = map[string][]Parameter{
	"euclid": {
		{Name: "pulses", MinValue: 0, MaxValue: 64, Default: 4, CanModulate: true},
		{Name: "steps", MinValue: 0, MaxValue: 64, Default: 16, CanModulate: true},
		{Name: "rotation", MinValue: 0, MaxValue: 63, Default: 0, CanModulate: true},
	},
	"random": {
		{Name: "events", MinValue: 0, MaxValue: 256, Default: 8, CanModulate: true},
		{Name: "span", MinValue: 1, MaxValue: 36, Default: 14, CanModulate: true},
	},
	"minimalism": {
		{Name: "celllength", MinValue: 1, MaxValue: 32, Default: 4, CanModulate: true},
		{Name: "cellnotes", MinValue: 1, MaxValue: 8, Default: 3, CanModulate: true},
		{Name: "phase", MinValue: 0, MaxValue: 16, Default: 1, CanModulate: true},
	},
	"counterpoint": {
		{Name: "voices", MinValue: 1, MaxValue: 4, Default: 2, CanModulate: true},
		{Name: "rules", MinValue: 0, MaxValue: 2, Default: 1},
	},
}

// ModTargets is a static map from generator kind to the parameter names that
// a modulation route may target, populated from GeneratorTypes during init().
var ModTargets = make(map[string][]string)

func init() {
	for kind := range GeneratorTypes {
		GeneratorTypes[kind] = append(GeneratorTypes[kind], commonGeneratorParams...)
	}
	for kind, params := range GeneratorTypes {
		names := make([]string, 0)
		for _, p := range params {
			if p.CanModulate {
				names = append(names, p.Name)
			}
		}
		ModTargets[kind] = names
	}
}

// BaseSeq is the declarative description of one canonical pattern: a
// generator kind, its parameters and the seed fully determining its output.
// It is mutated only through SetParam and reseeding; the events it generates
// are owned by the caller.
type BaseSeq struct {
	Kind       string
	Parameters map[string]int `yaml:",flow"`
	Seed       int64          `yaml:",omitempty"`
}

func (b *BaseSeq) Copy() BaseSeq {
	parameters := make(map[string]int, len(b.Parameters))
	for k, v := range b.Parameters {
		parameters[k] = v
	}
	return BaseSeq{Kind: b.Kind, Parameters: parameters, Seed: b.Seed}
}

// Param returns the value of the named parameter, falling back to the
// registry default when it was never set.
func (b *BaseSeq) Param(name string) int {
	if v, ok := b.Parameters[name]; ok {
		return v
	}
	for _, p := range GeneratorTypes[b.Kind] {
		if p.Name == name {
			return p.Default
		}
	}
	return 0
}

// SetParam validates the named parameter against the registry and sets it.
// On error the previous value is retained.
func (b *BaseSeq) SetParam(name string, value int) error {
	if err := checkParam(GeneratorTypes[b.Kind], b.Kind, name, value); err != nil {
		return err
	}
	if b.Parameters == nil {
		b.Parameters = make(map[string]int)
	}
	b.Parameters[name] = value
	return nil
}

func checkParam(params []Parameter, kind, name string, value int) error {
	for _, p := range params {
		if p.Name != name {
			continue
		}
		if value < p.MinValue || value > p.MaxValue {
			return &ParamError{Kind: kind, Name: name, Value: value, Min: p.MinValue, Max: p.MaxValue}
		}
		return nil
	}
	return &UnknownParamError{Kind: kind, Name: name}
}

// Generate produces the canonical event sequence of the base sequence for
// the given loop. It is pure: identical (kind, parameters, loop, seed) always
// yield a byte-identical sequence, which is what makes reseeding and
// parameter round-trips reproducible. The result is sorted and satisfies the
// ordering and pairing invariants.
func (b *BaseSeq) Generate(loop LoopSpec) (Events, error) {
	if err := loop.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(b.Seed))
	var events Events
	switch b.Kind {
	case "euclid":
		events = generateEuclid(b, loop, rng)
	case "random":
		events = generateRandom(b, loop, rng)
	case "minimalism":
		events = generateMinimalism(b, loop, rng)
	case "counterpoint":
		events = generateCounterpoint(b, loop, rng)
	default:
		return nil, fmt.Errorf("%w: unknown generator kind %q", ErrInvalidParameter, b.Kind)
	}
	events.Sort()
	events = events.clipOverlaps()
	if err := events.Validate(loop); err != nil {
		return nil, err
	}
	return events, nil
}

// appendNote appends the NoteOn/NoteOff pair of one note. A note reaching
// past the loop end gets the sustain marker and its NoteOff wraps to the
// start of the loop.
func appendNote(events Events, loop LoopSpec, frame, length uint32, pitch, velocity, channel byte) Events {
	loopLen := loop.LengthFrames()
	if loopLen == 0 {
		return events
	}
	frame %= loopLen
	if length < 1 {
		length = 1
	}
	if length >= loopLen {
		length = loopLen - 1
	}
	on := Event{Frame: frame, Kind: NoteOn, Channel: channel, Pitch: pitch, Velocity: velocity}
	off := Event{Frame: frame + length, Kind: NoteOff, Channel: channel, Pitch: pitch}
	if off.Frame >= loopLen {
		on.Sustain = true
		off.Frame -= loopLen
	}
	return append(events, on, off)
}

// noteLength draws a note length in frames from the generator's notelen and
// notelendev parameters.
func noteLength(b *BaseSeq, loop LoopSpec, rng *rand.Rand) uint32 {
	ticks := float64(b.Param("notelen")) + rng.NormFloat64()*float64(b.Param("notelendev"))
	if ticks < 1 {
		ticks = 1
	}
	return loop.TickFrames(int(ticks))
}

// noteVelocity draws a velocity from the generator's velocity and
// velocitydev parameters.
func noteVelocity(b *BaseSeq, rng *rand.Rand) byte {
	return clampVelocity(b.Param("velocity") + int(rng.NormFloat64()*float64(b.Param("velocitydev"))))
}

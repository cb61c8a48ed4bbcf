package gisele

import (
	"errors"
	"fmt"
)

type (
	// Song is the persisted description of a whole setup: the lines with
	// their loop, generator, effect and cell parameters and seeds, and the
	// modulation routes between lines. It is sufficient to deterministically
	// reconstruct every event buffer. Marshals to yaml.
	Song struct {
		Lines  []LineSpec
		Routes []ModRoute `yaml:",omitempty"`
	}

	// LineSpec is the full parameter surface of one sequencer line.
	LineSpec struct {
		Name      string `yaml:",omitempty"`
		Loop      LoopSpec
		Generator BaseSeq
		Effects   []EffectConfig `yaml:",omitempty"`
		Cells     []CellConfig   `yaml:",omitempty"`
	}

	// ModRoute couples two lines: a value computed from the source line's
	// cycle output is scaled and delivered as a parameter change into the
	// target line's command channel. Lines never touch each other's state
	// directly; routing goes through the same command vocabulary as any
	// external control message.
	ModRoute struct {
		From   int
		To     int
		Source string // onsets | meanpitch | meanvelocity
		Target ParamRef
		Scale  float64 `yaml:",omitempty"` // 0 means 1
		Offset int     `yaml:",omitempty"`
	}

	// ParamRef names one parameter of a line: the generator's, an effect's
	// or a cell's.
	ParamRef struct {
		Section string // generator | effect | cell
		Index   int    `yaml:",omitempty"`
		Key     string
	}
)

// ModSources lists the valid ModRoute.Source values.
var ModSources = []string{"onsets", "meanpitch", "meanvelocity"}

func (s *Song) Copy() Song {
	lines := make([]LineSpec, len(s.Lines))
	for i := range s.Lines {
		lines[i] = s.Lines[i].Copy()
	}
	routes := make([]ModRoute, len(s.Routes))
	copy(routes, s.Routes)
	return Song{Lines: lines, Routes: routes}
}

func (s *Song) Validate() error {
	if len(s.Lines) == 0 {
		return errors.New("song should have at least one line")
	}
	for i := range s.Lines {
		if err := s.Lines[i].Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	for i, r := range s.Routes {
		if r.From < 0 || r.From >= len(s.Lines) || r.To < 0 || r.To >= len(s.Lines) {
			return fmt.Errorf("route %d: line indices out of range", i)
		}
		if r.From == r.To {
			return fmt.Errorf("route %d: a line cannot modulate itself", i)
		}
		found := false
		for _, src := range ModSources {
			if r.Source == src {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("route %d: %w: unknown source %q", i, ErrInvalidParameter, r.Source)
		}
		if err := s.Lines[r.To].CheckRef(r.Target); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
	}
	return nil
}

func (l *LineSpec) Copy() LineSpec {
	effects := make([]EffectConfig, len(l.Effects))
	for i := range l.Effects {
		effects[i] = l.Effects[i].Copy()
	}
	cells := make([]CellConfig, len(l.Cells))
	for i := range l.Cells {
		cells[i] = l.Cells[i].Copy()
	}
	return LineSpec{Name: l.Name, Loop: l.Loop, Generator: l.Generator.Copy(), Effects: effects, Cells: cells}
}

func (l *LineSpec) Validate() error {
	if err := l.Loop.Validate(); err != nil {
		return err
	}
	if _, ok := GeneratorTypes[l.Generator.Kind]; !ok {
		return fmt.Errorf("%w: unknown generator kind %q", ErrInvalidParameter, l.Generator.Kind)
	}
	for k, v := range l.Generator.Parameters {
		if err := checkParam(GeneratorTypes[l.Generator.Kind], l.Generator.Kind, k, v); err != nil {
			return err
		}
	}
	for i := range l.Effects {
		if _, ok := EffectTypes[l.Effects[i].Kind]; !ok {
			return fmt.Errorf("%w: unknown effect kind %q", ErrInvalidParameter, l.Effects[i].Kind)
		}
		for k, v := range l.Effects[i].Parameters {
			if err := checkParam(EffectTypes[l.Effects[i].Kind], l.Effects[i].Kind, k, v); err != nil {
				return err
			}
		}
	}
	for i := range l.Cells {
		if _, ok := CellTypes[l.Cells[i].Kind]; !ok {
			return fmt.Errorf("%w: unknown cell kind %q", ErrInvalidParameter, l.Cells[i].Kind)
		}
		for k, v := range l.Cells[i].Parameters {
			if err := checkParam(CellTypes[l.Cells[i].Kind], l.Cells[i].Kind, k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckRef validates that a ParamRef names an existing, modulatable
// parameter of this line.
func (l *LineSpec) CheckRef(ref ParamRef) error {
	var kind string
	var registry map[string][]Parameter
	switch ref.Section {
	case "generator":
		kind, registry = l.Generator.Kind, GeneratorTypes
	case "effect":
		if ref.Index < 0 || ref.Index >= len(l.Effects) {
			return fmt.Errorf("%w: effect index %d out of range", ErrInvalidParameter, ref.Index)
		}
		kind, registry = l.Effects[ref.Index].Kind, EffectTypes
	case "cell":
		if ref.Index < 0 || ref.Index >= len(l.Cells) {
			return fmt.Errorf("%w: cell index %d out of range", ErrInvalidParameter, ref.Index)
		}
		kind, registry = l.Cells[ref.Index].Kind, CellTypes
	default:
		return fmt.Errorf("%w: unknown section %q", ErrInvalidParameter, ref.Section)
	}
	for _, p := range registry[kind] {
		if p.Name == ref.Key {
			if !p.CanModulate {
				return fmt.Errorf("%w: parameter %s.%s cannot be modulated", ErrInvalidParameter, kind, ref.Key)
			}
			return nil
		}
	}
	return &UnknownParamError{Kind: kind, Name: ref.Key}
}

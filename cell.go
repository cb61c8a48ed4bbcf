package gisele

import (
	"fmt"
	"math/rand"
)

// CellTypes documents all the available randomization cell kinds and what
// parameters they take. Cells perturb a copy of the effected pattern once per
// loop cycle; the canonical base sequence is never overwritten.
var CellTypes = map[string][]Parameter{
	"jitter": {
		{Name: "timingdev", MinValue: 0, MaxValue: NoteLenTicks, Default: 4, CanModulate: true},
		{Name: "velocitydev", MinValue: 0, MaxValue: 64, Default: 10, CanModulate: true},
		{Name: "lengthdev", MinValue: 0, MaxValue: NoteLenTicks, Default: 0, CanModulate: true},
		{Name: "poisson", MinValue: 0, MaxValue: 1, Default: 0},
	},
	"markov": {
		{Name: "window", MinValue: 1, MaxValue: 4, Default: 1},
		{Name: "strength", MinValue: 0, MaxValue: 128, Default: 64, CanModulate: true},
	},
	"genetic": {
		{Name: "population", MinValue: 2, MaxValue: 16, Default: 8},
		{Name: "mutationrate", MinValue: 0, MaxValue: 128, Default: 16, CanModulate: true},
		{Name: "elite", MinValue: 1, MaxValue: 4, Default: 2},
	},
	"automaton": {
		{Name: "rule", MinValue: 0, MaxValue: 255, Default: 110},
		{Name: "width", MinValue: 4, MaxValue: 64, Default: 16},
		{Name: "lsystem", MinValue: 0, MaxValue: 1, Default: 0},
		{Name: "gate", MinValue: 0, MaxValue: 128, Default: 64, CanModulate: true},
	},
}

// CellConfig is the declarative description of one randomization cell.
type CellConfig struct {
	Kind       string
	Parameters map[string]int `yaml:",flow"`
}

func (c *CellConfig) Copy() CellConfig {
	parameters := make(map[string]int, len(c.Parameters))
	for k, v := range c.Parameters {
		parameters[k] = v
	}
	return CellConfig{Kind: c.Kind, Parameters: parameters}
}

func (c *CellConfig) Param(name string) int {
	if v, ok := c.Parameters[name]; ok {
		return v
	}
	for _, p := range CellTypes[c.Kind] {
		if p.Name == name {
			return p.Default
		}
	}
	return 0
}

func (c *CellConfig) SetParam(name string, value int) error {
	if err := checkParam(CellTypes[c.Kind], c.Kind, name, value); err != nil {
		return err
	}
	if c.Parameters == nil {
		c.Parameters = make(map[string]int)
	}
	c.Parameters[name] = value
	return nil
}

// Cell is a live randomization cell. Perturb produces a new sequence from
// the base pattern, advancing the cell's internal state by one generation;
// it is called once per loop cycle on the control side, never from the
// real-time context. Implementations own their seeded rng so that a cell's
// whole output stream is determined by (config, seed, cycle count).
type Cell interface {
	Kind() string
	SetParam(name string, value int) error
	Perturb(base Events, loop LoopSpec) (Events, error)
}

// NewCell builds the live cell for a config, seeding its rng and state from
// the given seed.
func NewCell(config CellConfig, seed int64) (Cell, error) {
	rng := rand.New(rand.NewSource(seed))
	switch config.Kind {
	case "jitter":
		return &jitterCell{config: config.Copy(), rng: rng}, nil
	case "markov":
		return &markovCell{config: config.Copy(), rng: rng}, nil
	case "genetic":
		return &geneticCell{config: config.Copy(), rng: rng}, nil
	case "automaton":
		return newAutomatonCell(config.Copy(), rng), nil
	default:
		return nil, fmt.Errorf("%w: unknown cell kind %q", ErrInvalidParameter, config.Kind)
	}
}

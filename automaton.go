package gisele

import "math/rand"

// automatonCell gates the base pattern through a one dimensional cellular
// automaton advanced one generation per loop cycle. Each note is mapped to a
// cell by its onset position; notes on live cells pass through, notes on dead
// cells are attenuated or dropped depending on the gate parameter. In
// lsystem mode the row is instead derived from a Lindenmayer rewrite string
// grown one rewrite per cycle.
type automatonCell struct {
	config CellConfig
	rng    *rand.Rand
	row    []bool
	word   []byte
}

func newAutomatonCell(config CellConfig, rng *rand.Rand) *automatonCell {
	return &automatonCell{config: config, rng: rng}
}

func (c *automatonCell) Kind() string { return c.config.Kind }

func (c *automatonCell) SetParam(name string, value int) error {
	return c.config.SetParam(name, value)
}

func (c *automatonCell) Perturb(base Events, loop LoopSpec) (Events, error) {
	width := c.config.Param("width")
	if len(c.row) != width {
		// (re)seed the state: a random row, or the L-system axiom
		c.row = make([]bool, width)
		for i := range c.row {
			c.row[i] = c.rng.Intn(2) == 0
		}
		c.word = []byte{'A'}
	}
	if c.config.Param("lsystem") != 0 {
		c.word = rewrite(c.word, width)
		for i := range c.row {
			c.row[i] = c.word[i%len(c.word)] == 'A'
		}
	} else {
		c.row = advance(c.row, byte(c.config.Param("rule")))
	}

	pairs, err := base.pairNotes()
	if err != nil {
		return nil, err
	}
	gate := c.config.Param("gate")
	loopLen := loop.LengthFrames()
	ret := make(Events, 0, len(base))
	for _, pair := range pairs {
		on, off := base[pair.on], base[pair.off]
		span := off.Frame - on.Frame
		if pair.wrapped {
			span = loopLen - on.Frame + off.Frame
		}
		cell := int(uint64(on.Frame) * uint64(width) / uint64(loopLen))
		velocity := on.Velocity
		if !c.row[cell] {
			if gate < 64 {
				continue // dead cell drops the note
			}
			velocity = clampVelocity(int(on.Velocity) * gate / 128)
		}
		ret = appendNote(ret, loop, on.Frame, span, on.Pitch, velocity, on.Channel)
	}
	ret.Sort()
	return ret.clipOverlaps(), nil
}

// advance computes one generation of the elementary cellular automaton with
// the given Wolfram rule number, wrapping at the edges.
func advance(row []bool, rule byte) []bool {
	next := make([]bool, len(row))
	for i := range row {
		idx := 0
		if row[(i+len(row)-1)%len(row)] {
			idx |= 4
		}
		if row[i] {
			idx |= 2
		}
		if row[(i+1)%len(row)] {
			idx |= 1
		}
		next[i] = rule&(1<<idx) != 0
	}
	return next
}

// rewrite applies one step of the Fibonacci L-system (A -> AB, B -> A),
// capping the word at maxLen symbols.
func rewrite(word []byte, maxLen int) []byte {
	next := make([]byte, 0, len(word)*2)
	for _, s := range word {
		if s == 'A' {
			next = append(next, 'A', 'B')
		} else {
			next = append(next, 'A')
		}
		if len(next) >= maxLen {
			break
		}
	}
	return next
}

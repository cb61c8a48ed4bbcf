package gisele

import (
	"math/rand"

	"github.com/viterin/vek/vek32"
)

// fitnessSteps is the resolution of the onset grid the fitness function
// correlates: 16th steps of a four bar loop are plenty to compare rhythms.
const fitnessSteps = 64

// geneticCell keeps a small population of variations of the base pattern and
// promotes the fittest one every cycle. Fitness rewards variants whose onset
// grid correlates with the base rhythm and whose pitches stay close to the
// base's pitch material, so the population drifts without losing the
// pattern's identity. The losers are replaced by mutated copies of the elite.
type geneticCell struct {
	config     CellConfig
	rng        *rand.Rand
	population []Events

	// scratch vectors for the vectorized fitness scoring
	baseGrid    []float32
	variantGrid []float32
	tmp         []float32
}

func (c *geneticCell) Kind() string { return c.config.Kind }

func (c *geneticCell) SetParam(name string, value int) error {
	return c.config.SetParam(name, value)
}

func (c *geneticCell) Perturb(base Events, loop LoopSpec) (Events, error) {
	size := c.config.Param("population")
	if len(c.population) != size {
		c.population = make([]Events, size)
		for i := range c.population {
			c.population[i] = c.mutate(base, loop)
		}
	}
	if c.baseGrid == nil {
		c.baseGrid = make([]float32, fitnessSteps)
		c.variantGrid = make([]float32, fitnessSteps)
		c.tmp = make([]float32, fitnessSteps)
	}
	c.onsetGrid(c.baseGrid, base, loop)

	scores := make([]float64, size)
	order := make([]int, size)
	for i, variant := range c.population {
		scores[i] = c.fitness(variant, base, loop)
		order[i] = i
	}
	for i := 1; i < size; i++ { // small fixed sizes, insertion sort is fine
		for j := i; j > 0 && scores[order[j]] > scores[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	elite := c.config.Param("elite")
	if elite > size {
		elite = size
	}
	next := make([]Events, size)
	for i := 0; i < size; i++ {
		if i < elite {
			next[i] = c.population[order[i]]
		} else {
			next[i] = c.mutate(c.population[order[i%elite]], loop)
		}
	}
	c.population = next

	fittest := c.population[0].Copy()
	fittest.Sort()
	fittest = fittest.clipOverlaps()
	return fittest, nil
}

// fitness scores a variant against the base: mean product of the two onset
// grids (rhythmic fit) plus the fraction of the variant's pitches that occur
// in the base (harmonic fit).
func (c *geneticCell) fitness(variant, base Events, loop LoopSpec) float64 {
	c.onsetGrid(c.variantGrid, variant, loop)
	rhythmic := float64(vek32.Mean(vek32.Mul_Into(c.tmp, c.baseGrid, c.variantGrid)))

	var basePitches [128]bool
	for _, e := range base {
		if e.Kind == NoteOn {
			basePitches[e.Pitch] = true
		}
	}
	matched, total := 0, 0
	for _, e := range variant {
		if e.Kind == NoteOn {
			total++
			if basePitches[e.Pitch] {
				matched++
			}
		}
	}
	harmonic := 1.0
	if total > 0 {
		harmonic = float64(matched) / float64(total)
	}
	return rhythmic + harmonic
}

func (c *geneticCell) onsetGrid(grid []float32, events Events, loop LoopSpec) {
	for i := range grid {
		grid[i] = 0
	}
	length := loop.LengthFrames()
	if length == 0 {
		return
	}
	for _, e := range events {
		if e.Kind == NoteOn {
			grid[int(uint64(e.Frame)*fitnessSteps/uint64(length))] += float32(e.Velocity) / 127
		}
	}
}

// mutate copies the pattern and tweaks a mutationrate-controlled number of
// notes: a scale-step pitch nudge, a 16th-step timing nudge, or a velocity
// change.
func (c *geneticCell) mutate(events Events, loop LoopSpec) Events {
	pairs, err := events.pairNotes()
	if err != nil || len(pairs) == 0 {
		return events.Copy()
	}
	rate := c.config.Param("mutationrate")
	loopLen := loop.LengthFrames()
	step := loopLen / fitnessSteps
	if step < 1 {
		step = 1
	}
	ret := make(Events, 0, len(events))
	for _, pair := range pairs {
		on, off := events[pair.on], events[pair.off]
		span := off.Frame - on.Frame
		if pair.wrapped {
			span = loopLen - on.Frame + off.Frame
		}
		frame, pitch, velocity := on.Frame, on.Pitch, on.Velocity
		if c.rng.Intn(128) < rate {
			switch c.rng.Intn(3) {
			case 0:
				pitch = clampPitch(int(pitch) + []int{-2, -1, 1, 2}[c.rng.Intn(4)])
			case 1:
				frame = (frame + uint32(c.rng.Intn(3))*step + loopLen - step) % loopLen
			default:
				velocity = clampVelocity(int(velocity) + c.rng.Intn(41) - 20)
			}
		}
		ret = appendNote(ret, loop, frame, span, pitch, velocity, on.Channel)
	}
	ret.Sort()
	return ret.clipOverlaps()
}

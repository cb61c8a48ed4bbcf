/*
Package gisele defines the data model of a generative MIDI sequencer: loops,
note events, base sequence generators, effect chains and randomization
cells.

Everything in this package is a pure value computation. A BaseSeq plus a
seed deterministically yields the canonical Events of one loop; effects
transform a copy of them; cells perturb a copy once per cycle. Sequences
returned by this package are sorted and satisfy the ordering and pairing
invariants checked by Events.Validate, so the real-time side (package
sequencer) can replay them without further checks.

Generator, effect and cell parameters are small integers validated against
the registries GeneratorTypes, EffectTypes and CellTypes, which also
document which parameters a modulation route may target. A Song bundles
the line descriptions and routes and marshals to yaml.
*/
package gisele

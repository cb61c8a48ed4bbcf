/*
Package sequencer contains the real-time core of the gisele engine.

The package revolves around the Line: one generative voice whose pattern is
described declaratively (a generator, an effect chain, randomization cells)
and materialized into an immutable EventBuffer that the real-time side
replays cycle after cycle. All pattern computation happens on a per-line
control goroutine; the real-time side only drains a message channel, swaps
buffers and walks the current one with a playhead. The two sides share no
mutable state and never take a lock, so Process is safe to call from an
audio or timer callback.

Changes are classified by when they may take effect. Transport commands and
immediate reseeds apply within the cycle they arrive in; everything that
changes the pattern itself (parameters, loop length, tempo) produces a new
buffer generation that is swapped in at the next loop wrap, the only point
where the playhead, the event list and the loop geometry can change
together without glitching. Transport commands travel a dedicated
latest-wins slot, so a stop always gets through even when the regular
message channel is saturated. Whatever happens, a line never lets a note
hang: stopping, removing a line or swapping buffers forces NoteOffs for
everything still sounding.

The Mixer runs all lines of a Song in one process loop, merges their
events into a single frame-sorted stream and evaluates the modulation
routes between lines, turning one line's cycle statistics into parameter
commands for another. External control goes through Mixer.Dispatch, which
never blocks: a saturated command channel is reported to the caller and
counted on the Broker.
*/
package sequencer

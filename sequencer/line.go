package sequencer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Lcchy/gisele"
)

const (
	commandChannelSize = 64
	maxRTMessages      = 32 // per Process call, keeps a flooded channel from eating the cycle
)

// Line is one generative voice: a generator, an effect chain and a stack
// of randomization cells, materialized into an EventBuffer that the
// real-time side replays.
//
// A Line is split in two halves. The control half (spec, cells,
// canonical) is owned by the line's control goroutine: it rebuilds the
// buffer whenever a parameter changes or a cycle completes, entirely off
// the real-time path. The real-time half (buffer, transport, head,
// sounding) is owned by whoever calls Process. The halves communicate
// only through channels, so neither ever takes a lock.
type Line struct {
	id     int
	broker *Broker

	// Commands receives control messages for this line. Producers must
	// send non-blocking; Mixer.Dispatch does.
	Commands chan any

	// control half
	spec      gisele.LineSpec
	cells     []gisele.Cell
	canonical gisele.Events
	genCount  uint64
	wraps     chan struct{}
	toRT      chan any
	// transport commands travel their own capacity one, latest-wins slot
	// instead of toRT, so a stop can never be lost to saturation
	transportRT chan any

	// real-time half
	buffer    *EventBuffer
	pending   *EventBuffer
	transport Transport
	head      int
	sounding  soundingSet
	velDev    int
	velDevGen uint64
	rng       *rand.Rand

	cycleOnsets   int
	cyclePitchSum int
	cycleVelSum   int
	lastStats     CycleStats
	statsReady    bool
}

// NewLine validates spec, builds its cells and materializes the first
// buffer. The line does not react to commands until its control
// goroutine is started with Start.
func NewLine(id int, spec gisele.LineSpec, broker *Broker) (*Line, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("line %d: %w", id, err)
	}
	l := &Line{
		id:          id,
		broker:      broker,
		Commands:    make(chan any, commandChannelSize),
		spec:        spec.Copy(),
		wraps:       make(chan struct{}, 1),
		toRT:        make(chan any, commandChannelSize),
		transportRT: make(chan any, 1),
		rng:         rand.New(rand.NewSource(spec.Generator.Seed + int64(id)*7919 + 1)),
	}
	if err := l.buildCells(); err != nil {
		return nil, fmt.Errorf("line %d: %w", id, err)
	}
	canonical, err := l.spec.Generator.Generate(l.spec.Loop)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", id, err)
	}
	l.canonical = canonical
	events, err := l.materialize()
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", id, err)
	}
	l.genCount = 1
	l.buffer = &EventBuffer{Events: events, Loop: l.spec.Loop, Generation: 1}
	return l, nil
}

// Start launches the control goroutine. It returns when ctx is done.
func (l *Line) Start(ctx context.Context) {
	go l.runControl(ctx)
}

func (l *Line) ID() int { return l.id }

// Spec returns a copy of the line's current configuration. Only safe to
// call from the control goroutine's context, i.e. before Start or after
// its ctx is done.
func (l *Line) Spec() gisele.LineSpec { return l.spec.Copy() }

func (l *Line) buildCells() error {
	l.cells = l.cells[:0]
	for i, cc := range l.spec.Cells {
		cell, err := gisele.NewCell(cc, l.spec.Generator.Seed+int64(i)+1)
		if err != nil {
			return err
		}
		l.cells = append(l.cells, cell)
	}
	return nil
}

// Process advances the line by nframes frames. absFrame is the absolute
// frame at the start of the block; every emitted event is stamped
// relative to it. Commands are drained first, so a Stop or an immediate
// swap takes effect before any event of the block is emitted.
func (l *Line) Process(nframes uint32, absFrame uint64, out *[]TimedEvent) {
	l.processMessages(absFrame, out)
	if l.transport.State != Playing {
		return
	}
	consumed := uint32(0)
	for consumed < nframes {
		loopLen := l.buffer.Loop.LengthFrames()
		if l.transport.Playhead >= loopLen {
			l.wrapBoundary(absFrame+uint64(consumed), out)
			continue
		}
		n := min(nframes-consumed, loopLen-l.transport.Playhead)
		end := l.transport.Playhead + n
		for l.head < len(l.buffer.Events) && l.buffer.Events[l.head].Frame < end {
			e := l.buffer.Events[l.head]
			at := absFrame + uint64(consumed) + uint64(e.Frame-l.transport.Playhead)
			l.emit(at, e, out)
			l.head++
		}
		l.transport.Playhead += n
		consumed += n
		if l.transport.Playhead >= loopLen {
			l.wrapBoundary(absFrame+uint64(consumed), out)
		}
	}
}

// wrapBoundary runs at the exact loop boundary, the only safe point for
// deferred changes: the playhead rewinds, a pending buffer (possibly
// with a different loop length) is swapped in, and the control side is
// woken to prepare the next cycle.
func (l *Line) wrapBoundary(at uint64, out *[]TimedEvent) {
	l.flushStats()
	l.transport.Playhead = 0
	l.head = 0
	if l.pending != nil {
		// Hanging notes belong to the outgoing pattern; close them so
		// the new buffer starts clean.
		l.forceNoteOffs(at, out)
		old := l.buffer
		l.buffer = l.pending
		l.pending = nil
		l.broker.PutEventsBuf(&old.Events)
		l.settleVelDev()
	}
	trySend(l.wraps, struct{}{})
}

func (l *Line) processMessages(absFrame uint64, out *[]TimedEvent) {
	select {
	case msg := <-l.transportRT:
		l.applyRTMessage(msg, absFrame, out)
	default:
	}
	for i := 0; i < maxRTMessages; i++ {
		select {
		case msg := <-l.toRT:
			l.applyRTMessage(msg, absFrame, out)
		default:
			return
		}
	}
}

func (l *Line) applyRTMessage(msg any, at uint64, out *[]TimedEvent) {
	switch m := msg.(type) {
	case StartMsg:
		if l.transport.start(m.Resume) {
			l.forceNoteOffs(at, out)
			l.head = 0
			l.resetStats()
		}
	case StopMsg:
		l.forceNoteOffs(at, out)
		l.transport.stop()
		l.head = 0
		l.resetStats()
	case PauseMsg:
		l.transport.pause()
	case velDevMsg:
		l.velDev, l.velDevGen = m.dev, m.gen
	case swapMsg:
		l.applySwap(m, at, out)
	}
}

func (l *Line) applySwap(m swapMsg, at uint64, out *[]TimedEvent) {
	if m.buffer.Generation <= l.buffer.Generation {
		// Stale: a newer buffer already made it in.
		l.broker.PutEventsBuf(&m.buffer.Events)
		return
	}
	if !m.immediate {
		if l.pending != nil {
			l.broker.PutEventsBuf(&l.pending.Events)
		}
		l.pending = m.buffer
		return
	}
	l.forceNoteOffs(at, out)
	old := l.buffer
	l.buffer = m.buffer
	// a tempo change scales the loop; keep the bar position by scaling
	// the playhead with it
	oldLen, newLen := old.Loop.LengthFrames(), l.buffer.Loop.LengthFrames()
	if oldLen != newLen && oldLen > 0 {
		l.transport.Playhead = uint32(uint64(l.transport.Playhead) * uint64(newLen) / uint64(oldLen))
	}
	if l.transport.Playhead >= newLen {
		l.transport.Playhead %= newLen
	}
	l.head = l.buffer.indexAt(l.transport.Playhead)
	l.broker.PutEventsBuf(&old.Events)
	l.settleVelDev()
}

// settleVelDev turns the velocity deviation mirror off once a buffer
// with the deviation baked in has arrived; applying it on top would
// double the spread.
func (l *Line) settleVelDev() {
	if l.velDevGen != 0 && l.buffer.Generation >= l.velDevGen {
		l.velDev, l.velDevGen = 0, 0
	}
}

func (l *Line) emit(at uint64, e gisele.Event, out *[]TimedEvent) {
	if e.Kind == gisele.NoteOn {
		if l.velDev > 0 {
			v := int(e.Velocity) + int(l.rng.NormFloat64()*float64(l.velDev))
			if v < 1 {
				v = 1
			} else if v > 127 {
				v = 127
			}
			e.Velocity = byte(v)
		}
		l.sounding.set(e.Channel, e.Pitch)
		l.cycleOnsets++
		l.cyclePitchSum += int(e.Pitch)
		l.cycleVelSum += int(e.Velocity)
	} else {
		l.sounding.clear(e.Channel, e.Pitch)
	}
	*out = append(*out, TimedEvent{Frame: at, Event: e})
}

// forceNoteOffs emits a NoteOff for every sounding note and clears the
// set. Stray NoteOffs for notes a receiver never heard are harmless.
func (l *Line) forceNoteOffs(at uint64, out *[]TimedEvent) {
	l.sounding.forEach(func(channel, pitch byte) {
		*out = append(*out, TimedEvent{Frame: at, Event: gisele.Event{
			Frame:   l.transport.Playhead,
			Kind:    gisele.NoteOff,
			Channel: channel,
			Pitch:   pitch,
		}})
	})
	l.sounding.reset()
}

func (l *Line) flushStats() {
	stats := CycleStats{Generation: l.buffer.Generation, Onsets: l.cycleOnsets}
	if l.cycleOnsets > 0 {
		stats.MeanPitch = l.cyclePitchSum / l.cycleOnsets
		stats.MeanVelocity = l.cycleVelSum / l.cycleOnsets
	}
	l.broker.toControl(l.id, stats)
	l.lastStats = stats
	l.statsReady = true
	l.resetStats()
}

// takeStats returns the stats of the last completed cycle, once. Owned
// by the real-time side; the mixer samples it right after Process to
// drive modulation routes.
func (l *Line) takeStats() (CycleStats, bool) {
	if !l.statsReady {
		return CycleStats{}, false
	}
	l.statsReady = false
	return l.lastStats, true
}

func (l *Line) resetStats() {
	l.cycleOnsets = 0
	l.cyclePitchSum = 0
	l.cycleVelSum = 0
}

func (l *Line) runControl(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-l.Commands:
			l.applyCommand(msg)
		case <-l.wraps:
			l.advanceCycle()
		}
	}
}

// advanceCycle prepares the next loop cycle after a wrap. Lines without
// cells replay the same buffer forever; lines with cells get a fresh
// perturbation of the canonical sequence every cycle.
func (l *Line) advanceCycle() {
	if len(l.cells) == 0 {
		return
	}
	l.rematerialize(false)
}

func (l *Line) applyCommand(msg any) {
	switch m := msg.(type) {
	case SetGeneratorParamMsg:
		if err := l.spec.Generator.SetParam(m.Key, m.Value); err != nil {
			l.alert(Warning, "generator", err)
			return
		}
		if l.regenerate() {
			l.rematerialize(false)
		}
	case SetEffectParamMsg:
		if m.Index < 0 || m.Index >= len(l.spec.Effects) {
			l.alert(Warning, "effects", fmt.Errorf("no effect at index %d", m.Index))
			return
		}
		if err := l.spec.Effects[m.Index].SetParam(m.Key, m.Value); err != nil {
			l.alert(Warning, "effects", err)
			return
		}
		l.rematerialize(false)
	case SetCellParamMsg:
		if m.Cell < 0 || m.Cell >= len(l.cells) {
			l.alert(Warning, "cells", fmt.Errorf("no cell at index %d", m.Cell))
			return
		}
		if err := l.spec.Cells[m.Cell].SetParam(m.Key, m.Value); err != nil {
			l.alert(Warning, "cells", err)
			return
		}
		if err := l.cells[m.Cell].SetParam(m.Key, m.Value); err != nil {
			l.alert(Warning, "cells", err)
			return
		}
		if l.spec.Cells[m.Cell].Kind == "jitter" && m.Key == "velocitydev" {
			// Velocity spread also applies to notes already buffered, so
			// the change is audible before the next materialization. The
			// next generation bakes the spread in, at which point the
			// mirror switches itself off.
			l.sendRT(velDevMsg{dev: m.Value, gen: l.genCount + 1})
		}
		l.rematerialize(false)
	case ReseedMsg:
		l.spec.Generator.Seed = m.Seed
		if err := l.buildCells(); err != nil {
			l.alert(Error, "reseed", err)
			return
		}
		if l.regenerate() {
			l.rematerialize(m.Immediate)
		}
	case SetLoopLengthMsg:
		loop := l.spec.Loop
		loop.LengthBars = m.Bars
		if err := loop.Validate(); err != nil {
			l.alert(Warning, "loop", err)
			return
		}
		l.spec.Loop = loop
		if l.regenerate() {
			l.rematerialize(false)
		}
	case SetBPMMsg:
		loop := l.spec.Loop
		loop.BPM = m.BPM
		if err := loop.Validate(); err != nil {
			l.alert(Warning, "loop", err)
			return
		}
		l.spec.Loop = loop
		// tempo applies right away; the swap rescales the playhead so
		// the bar position is preserved
		if l.regenerate() {
			l.rematerialize(true)
		}
	case StartMsg, StopMsg, PauseMsg:
		l.sendTransport(msg)
	default:
		l.alert(Warning, "command", fmt.Errorf("unknown command %T", msg))
	}
}

// sendTransport puts a transport command in the dedicated slot. When an
// unread transport command is still in it, that one is superseded: the
// last requested transport state is what counts, and a stop is never
// dropped just because other messages are queued.
func (l *Line) sendTransport(msg any) {
	for !trySend(l.transportRT, msg) {
		select {
		case <-l.transportRT:
		default:
		}
	}
}

func (l *Line) sendRT(msg any) {
	if !trySend(l.toRT, msg) {
		l.broker.DroppedToRT.Add(1)
		l.alert(Warning, "command", fmt.Errorf("real-time channel saturated, %T dropped", msg))
	}
}

// regenerate rebuilds the canonical sequence from the generator. On
// failure the old canonical sequence is kept and an alert is raised.
func (l *Line) regenerate() bool {
	events, err := l.spec.Generator.Generate(l.spec.Loop)
	if err != nil {
		l.alert(Error, "generator", err)
		return false
	}
	l.canonical = events
	return true
}

// materialize runs the canonical sequence through the effect chain and
// the cells, yielding the events of one cycle.
func (l *Line) materialize() (gisele.Events, error) {
	events, err := gisele.ApplyChain(l.spec.Effects, l.canonical, l.spec.Loop)
	if err != nil {
		return nil, err
	}
	for i, cell := range l.cells {
		perturbed, err := cell.Perturb(events, l.spec.Loop)
		if err != nil {
			return nil, fmt.Errorf("cell %d (%s): %w", i, cell.Kind(), err)
		}
		events = perturbed
	}
	if err := events.Validate(l.spec.Loop); err != nil {
		return nil, err
	}
	return events, nil
}

// rematerialize builds a new buffer and hands it to the real-time side.
// On failure no swap happens: the real-time side keeps replaying its
// current buffer and an alert reports why.
func (l *Line) rematerialize(immediate bool) {
	events, err := l.materialize()
	if err != nil {
		l.alert(Warning, "materialize", err)
		return
	}
	l.genCount++
	buf := l.broker.GetEventsBuf()
	*buf = append(*buf, events...)
	eb := &EventBuffer{Events: *buf, Loop: l.spec.Loop, Generation: l.genCount}
	if !trySend(l.toRT, any(swapMsg{buffer: eb, immediate: immediate})) {
		l.broker.PutEventsBuf(&eb.Events)
		l.broker.DroppedToRT.Add(1)
		l.alert(Warning, "swap", fmt.Errorf("real-time channel saturated, generation %d dropped", eb.Generation))
	}
}

func (l *Line) alert(priority AlertPriority, name string, err error) {
	l.broker.toControl(l.id, Alert{Name: name, Priority: priority, Message: err.Error()})
}

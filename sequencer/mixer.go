package sequencer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Lcchy/gisele"
)

var (
	ErrChannelSaturated = errors.New("command channel saturated")
	ErrUnknownLine      = errors.New("unknown line")
	ErrNotStarted       = errors.New("mixer not started")
)

type (
	// Mixer runs all lines of a song inside one process loop, merges their
	// events into a single frame-sorted stream per cycle, and evaluates the
	// modulation routes between them.
	//
	// Like a Line, the Mixer is split in two halves with no shared mutable
	// state. The lines slice is owned by the Process caller; adding and
	// removing lines goes through a command channel, so the set of lines
	// only changes at cycle boundaries.
	Mixer struct {
		broker   *Broker
		commands chan any

		// real-time half
		lines    []*Line
		routes   []gisele.ModRoute
		absFrame uint64
		scratch  []TimedEvent

		// control half
		mu      sync.Mutex
		ctx     context.Context
		byID    map[int]*Line
		cancels map[int]context.CancelFunc
		nextID  int
	}

	addLineMsg struct {
		line *Line
	}

	removeLineMsg struct {
		id int
	}
)

// NewMixer builds one line per LineSpec in song, with line IDs matching
// the positions in song.Lines so the modulation routes apply unchanged.
func NewMixer(broker *Broker, song gisele.Song) (*Mixer, error) {
	if err := song.Validate(); err != nil {
		return nil, err
	}
	m := &Mixer{
		broker:   broker,
		commands: make(chan any, commandChannelSize),
		routes:   append([]gisele.ModRoute(nil), song.Routes...),
		byID:     make(map[int]*Line),
		cancels:  make(map[int]context.CancelFunc),
	}
	for i := range song.Lines {
		line, err := NewLine(i, song.Lines[i], broker)
		if err != nil {
			return nil, err
		}
		m.lines = append(m.lines, line)
		m.byID[i] = line
		m.nextID = i + 1
	}
	return m, nil
}

// Start launches the control goroutine of every line. It must be called
// before any command is dispatched.
func (m *Mixer) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	for id, line := range m.byID {
		lineCtx, cancel := context.WithCancel(ctx)
		m.cancels[id] = cancel
		line.Start(lineCtx)
	}
}

// Process advances every line by nframes frames and emits the merged
// events of the block to out, sorted by absolute frame with NoteOffs
// first at equal frames. The emitted slice is only valid during the
// Emit call.
func (m *Mixer) Process(nframes uint32, out Output) {
	m.scratch = m.scratch[:0]
	m.processMessages()
	for _, line := range m.lines {
		line.Process(nframes, m.absFrame, &m.scratch)
	}
	m.evaluateRoutes()
	m.absFrame += uint64(nframes)
	if len(m.scratch) == 0 {
		return
	}
	slices.SortStableFunc(m.scratch, func(a, b TimedEvent) int {
		if a.Frame != b.Frame {
			if a.Frame < b.Frame {
				return -1
			}
			return 1
		}
		return int(a.Event.Kind) - int(b.Event.Kind)
	})
	out.Emit(m.scratch)
}

func (m *Mixer) processMessages() {
	for i := 0; i < maxRTMessages; i++ {
		select {
		case msg := <-m.commands:
			switch c := msg.(type) {
			case addLineMsg:
				m.lines = append(m.lines, c.line)
			case removeLineMsg:
				for i, line := range m.lines {
					if line.id == c.id {
						line.forceNoteOffs(m.absFrame, &m.scratch)
						m.lines = slices.Delete(m.lines, i, i+1)
						break
					}
				}
			}
		default:
			return
		}
	}
}

// evaluateRoutes turns the cycle statistics of source lines into
// parameter commands for target lines. Routed commands travel the same
// channels as external ones; a saturated target just drops the update
// for this cycle.
func (m *Mixer) evaluateRoutes() {
	if len(m.routes) == 0 {
		return
	}
	var fresh map[int]CycleStats
	for _, line := range m.lines {
		if stats, ok := line.takeStats(); ok {
			if fresh == nil {
				fresh = make(map[int]CycleStats, len(m.lines))
			}
			fresh[line.id] = stats
		}
	}
	for _, r := range m.routes {
		stats, ok := fresh[r.From]
		if !ok {
			continue
		}
		dst := m.lineByID(r.To)
		if dst == nil {
			continue
		}
		source, ok := statValue(stats, r.Source)
		if !ok {
			continue
		}
		scale := r.Scale
		if scale == 0 {
			scale = 1
		}
		value := int(float64(source)*scale) + r.Offset
		var msg any
		switch r.Target.Section {
		case "generator":
			msg = SetGeneratorParamMsg{Key: r.Target.Key, Value: value}
		case "effect":
			msg = SetEffectParamMsg{Index: r.Target.Index, Key: r.Target.Key, Value: value}
		case "cell":
			msg = SetCellParamMsg{Cell: r.Target.Index, Key: r.Target.Key, Value: value}
		default:
			continue
		}
		if !trySend(dst.Commands, msg) {
			m.broker.DroppedToLines.Add(1)
		}
	}
}

func statValue(stats CycleStats, source string) (int, bool) {
	switch source {
	case "onsets":
		return stats.Onsets, true
	case "meanpitch":
		return stats.MeanPitch, true
	case "meanvelocity":
		return stats.MeanVelocity, true
	}
	return 0, false
}

func (m *Mixer) lineByID(id int) *Line {
	for _, line := range m.lines {
		if line.id == id {
			return line
		}
	}
	return nil
}

// Dispatch delivers a command to a line's command channel without
// blocking. A full channel returns ErrChannelSaturated; deeper
// validation happens on the line's control goroutine and surfaces as an
// alert.
func (m *Mixer) Dispatch(lineID int, msg any) error {
	if err := checkCommand(msg); err != nil {
		return err
	}
	m.mu.Lock()
	line, ok := m.byID[lineID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLine, lineID)
	}
	if !trySend(line.Commands, msg) {
		m.broker.DroppedToLines.Add(1)
		return fmt.Errorf("line %d: %w", lineID, ErrChannelSaturated)
	}
	return nil
}

// DispatchAll sends a command to every line, typically a transport
// message. It returns the first saturation error but still tries the
// remaining lines.
func (m *Mixer) DispatchAll(msg any) error {
	m.mu.Lock()
	ids := make([]int, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)
	var firstErr error
	for _, id := range ids {
		if err := m.Dispatch(id, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func checkCommand(msg any) error {
	switch msg.(type) {
	case SetGeneratorParamMsg, SetEffectParamMsg, SetCellParamMsg,
		ReseedMsg, SetLoopLengthMsg, SetBPMMsg,
		StartMsg, StopMsg, PauseMsg:
		return nil
	}
	return fmt.Errorf("%w: %T is not a command", gisele.ErrInvalidParameter, msg)
}

// AddLine builds a line for spec, starts its control goroutine and
// registers it with the real-time side at the next cycle. It returns
// the new line's ID.
func (m *Mixer) AddLine(spec gisele.LineSpec) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return 0, ErrNotStarted
	}
	id := m.nextID
	line, err := NewLine(id, spec, m.broker)
	if err != nil {
		return 0, err
	}
	if !trySend(m.commands, any(addLineMsg{line: line})) {
		m.broker.DroppedToRT.Add(1)
		return 0, ErrChannelSaturated
	}
	lineCtx, cancel := context.WithCancel(m.ctx)
	m.nextID++
	m.byID[id] = line
	m.cancels[id] = cancel
	line.Start(lineCtx)
	return id, nil
}

// RemoveLine stops a line's control goroutine and unregisters it from
// the real-time side at the next cycle, closing its sounding notes.
func (m *Mixer) RemoveLine(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLine, id)
	}
	if !trySend(m.commands, any(removeLineMsg{id: id})) {
		m.broker.DroppedToRT.Add(1)
		return ErrChannelSaturated
	}
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
	delete(m.byID, id)
	return nil
}

// Lines returns the registered line IDs in ascending order.
func (m *Mixer) Lines() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

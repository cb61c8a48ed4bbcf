package sequencer

// Commands accepted by a Line's command channel. All of them are plain
// values; a command that arrives after the channel is full is dropped at
// the sender and reported through Mixer.Dispatch.
//
// Parameter and structural commands are handled by the line's control
// goroutine, which rebuilds the event buffer off the real-time path and
// hands the result over for a swap. Transport commands, SetBPMMsg and
// ReseedMsg with Immediate set take effect within the cycle they are
// received in; the rest take effect at the next loop wrap. Transport
// commands are relayed to the real-time side over a latest-wins slot
// that cannot saturate; only the superseded transport state is lost.
type (
	// SetGeneratorParamMsg changes one parameter of the line's generator.
	SetGeneratorParamMsg struct {
		Key   string
		Value int
	}

	// SetEffectParamMsg changes one parameter of the effect at Index in
	// the line's chain.
	SetEffectParamMsg struct {
		Index int
		Key   string
		Value int
	}

	// SetCellParamMsg changes one parameter of the randomization cell at
	// Cell. A "velocitydev" change on a jitter cell is additionally
	// applied by the real-time side to events already in the buffer.
	SetCellParamMsg struct {
		Cell  int
		Key   string
		Value int
	}

	// ReseedMsg replaces the line's random seed and regenerates. With
	// Immediate set the new buffer is swapped in mid-cycle instead of at
	// the next wrap.
	ReseedMsg struct {
		Seed      int64
		Immediate bool
	}

	// SetLoopLengthMsg resizes the loop to Bars bars. The regenerated
	// buffer carries the new loop geometry, so length and content change
	// together at the wrap.
	SetLoopLengthMsg struct {
		Bars int
	}

	// SetBPMMsg changes the tempo. The buffer is regenerated for the new
	// frame geometry and swapped in immediately, with the playhead scaled
	// so the bar position is preserved.
	SetBPMMsg struct {
		BPM float64
	}

	// StartMsg begins playback. With Resume set playback continues from
	// the paused playhead; otherwise it restarts from frame zero.
	StartMsg struct {
		Resume bool
	}

	// StopMsg halts playback, emits NoteOffs for every sounding note and
	// rewinds the playhead to zero.
	StopMsg struct{}

	// PauseMsg halts playback keeping the playhead where it is. No
	// NoteOffs are emitted; sounding notes keep ringing until Stop or
	// until playback resumes past their NoteOff.
	PauseMsg struct{}
)

// Messages internal to a line, sent from its control goroutine to its
// real-time side.
type (
	swapMsg struct {
		buffer    *EventBuffer
		immediate bool
	}

	// velDevMsg mirrors a jitter cell's velocity deviation on the
	// real-time side until the buffer of generation gen, the first one
	// with the deviation baked in, has been swapped in.
	velDevMsg struct {
		dev int
		gen uint64
	}
)

package sequencer

type (
	// TransportState is the playback state of a line. Transitions happen
	// only on the real-time side, in response to transport commands.
	TransportState int

	// Transport couples the state with the playhead, the frame position
	// within the current loop. Pausing freezes the playhead; stopping
	// rewinds it.
	Transport struct {
		State    TransportState
		Playhead uint32
	}
)

const (
	Stopped TransportState = iota
	Playing
	Paused
)

func (s TransportState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// start begins or resumes playback; starting while already playing does
// nothing. It reports whether the playhead was rewound, which happens on
// any non-resuming start.
func (t *Transport) start(resume bool) bool {
	if t.State == Playing {
		return false
	}
	rewound := false
	if !resume || t.State == Stopped {
		t.Playhead = 0
		rewound = true
	}
	t.State = Playing
	return rewound
}

func (t *Transport) stop() {
	t.State = Stopped
	t.Playhead = 0
}

func (t *Transport) pause() {
	if t.State == Playing {
		t.State = Paused
	}
}

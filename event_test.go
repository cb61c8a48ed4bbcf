package gisele

import (
	"errors"
	"testing"
)

var testLoop = LoopSpec{LengthBars: 1, BPM: 60, BeatsPerBar: 4, SampleRate: 100} // 400 frames

func on(frame uint32, pitch byte) Event {
	return Event{Frame: frame, Kind: NoteOn, Pitch: pitch, Velocity: 100}
}

func off(frame uint32, pitch byte) Event {
	return Event{Frame: frame, Kind: NoteOff, Pitch: pitch}
}

func TestEventsSortOffBeforeOn(t *testing.T) {
	events := Events{on(100, 60), off(100, 60), on(0, 60), off(50, 60)}
	events.Sort()
	want := Events{on(0, 60), off(50, 60), off(100, 60), on(100, 60)}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d got %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestEventsValidate(t *testing.T) {
	sustained := on(350, 62)
	sustained.Sustain = true
	var tests = []struct {
		name   string
		events Events
		ok     bool
	}{
		{"empty", Events{}, true},
		{"pair", Events{on(0, 60), off(100, 60)}, true},
		{"meeting at boundary", Events{on(0, 60), off(100, 60), on(100, 60), off(200, 60)}, true},
		{"on before off at same frame", Events{on(0, 60), on(100, 60), off(100, 60), off(200, 60)}, false},
		{"sustained wrap", Events{off(30, 62), sustained}, true},
		{"orphan off", Events{on(0, 60), off(100, 60), off(150, 60)}, false},
		{"unmatched on", Events{on(0, 60)}, false},
		{"overlap same pitch", Events{on(0, 60), on(50, 60), off(100, 60), off(150, 60)}, false},
		{"outside loop", Events{on(500, 60), off(600, 60)}, false},
		{"out of order", Events{on(100, 60), off(50, 60), off(200, 60), on(150, 60)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.events.Validate(testLoop)
			if tt.ok && err != nil {
				t.Errorf("Validate got %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Errorf("Validate got nil, want error")
				} else if !errors.Is(err, ErrInvariantViolation) {
					t.Errorf("Validate error %v does not wrap ErrInvariantViolation", err)
				}
			}
		})
	}
}

func TestValidateBoundaryMeeting(t *testing.T) {
	// a NoteOff and the next NoteOn of the same pitch may share a frame;
	// sorted order puts the off first so the notes never overlap
	events := Events{on(0, 60), off(100, 60), on(100, 60), off(200, 60)}
	events.Sort()
	if err := events.Validate(testLoop); err != nil {
		t.Errorf("Validate got %v, want nil", err)
	}
}

func TestClipOverlaps(t *testing.T) {
	events := Events{on(0, 60), on(50, 60), off(100, 60), off(150, 60)}
	events.Sort()
	clipped := events.clipOverlaps()
	if err := clipped.Validate(testLoop); err != nil {
		t.Fatalf("clipped sequence invalid: %v", err)
	}
	// first note pulled back to the retrigger frame
	want := Events{on(0, 60), off(50, 60), on(50, 60), off(150, 60)}
	if len(clipped) != len(want) {
		t.Fatalf("got %d events, want %d", len(clipped), len(want))
	}
	for i := range want {
		if clipped[i] != want[i] {
			t.Errorf("event %d got %+v, want %+v", i, clipped[i], want[i])
		}
	}
}

func TestClipOverlapsDuplicateOnset(t *testing.T) {
	events := Events{on(0, 60), on(0, 60), off(100, 60), off(100, 60)}
	events.Sort()
	clipped := events.clipOverlaps()
	if len(clipped) != 2 {
		t.Fatalf("got %d events, want 2", len(clipped))
	}
	if err := clipped.Validate(testLoop); err != nil {
		t.Errorf("clipped sequence invalid: %v", err)
	}
}

func TestPairNotesWrapped(t *testing.T) {
	sustained := on(300, 60)
	sustained.Sustain = true
	events := Events{off(20, 60), on(100, 60), off(200, 60), sustained}
	pairs, err := events.pairNotes()
	if err != nil {
		t.Fatalf("pairNotes failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	wrapped := 0
	for _, p := range pairs {
		if p.wrapped {
			wrapped++
			if events[p.on].Frame != 300 || events[p.off].Frame != 20 {
				t.Errorf("wrapped pair ties frames %d and %d, want 300 and 20", events[p.on].Frame, events[p.off].Frame)
			}
		}
	}
	if wrapped != 1 {
		t.Errorf("got %d wrapped pairs, want 1", wrapped)
	}
}

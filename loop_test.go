package gisele

import "testing"

func TestLoopFrames(t *testing.T) {
	loop := LoopSpec{LengthBars: 2, BPM: 120, BeatsPerBar: 4, SampleRate: 44100}
	if got := loop.FramesPerBar(); got != 88200 {
		t.Errorf("FramesPerBar got %d, want 88200", got)
	}
	if got := loop.LengthFrames(); got != 176400 {
		t.Errorf("LengthFrames got %d, want 176400", got)
	}
}

func TestStepFrame(t *testing.T) {
	loop := LoopSpec{LengthBars: 1, BPM: 60, BeatsPerBar: 4, SampleRate: 100} // 400 frames
	var tests = []struct {
		i, steps int
		want     uint32
	}{
		{0, 4, 0},
		{1, 4, 100},
		{3, 4, 300},
		{1, 3, 133},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := loop.StepFrame(tt.i, tt.steps); got != tt.want {
			t.Errorf("StepFrame(%d, %d) got %d, want %d", tt.i, tt.steps, got, tt.want)
		}
	}
}

func TestTickFramesClamped(t *testing.T) {
	loop := LoopSpec{LengthBars: 1, BPM: 60, BeatsPerBar: 4, SampleRate: 100}
	if got := loop.TickFrames(0); got != 1 {
		t.Errorf("TickFrames(0) got %d, want at least one frame", got)
	}
	if got := loop.TickFrames(32); got != 100 {
		t.Errorf("TickFrames(32) got %d, want 100", got)
	}
	if got := loop.TickFrames(10000); got != loop.LengthFrames()-1 {
		t.Errorf("TickFrames(10000) got %d, want %d", got, loop.LengthFrames()-1)
	}
}

func TestLoopValidate(t *testing.T) {
	var tests = []struct {
		name string
		loop LoopSpec
		ok   bool
	}{
		{"default", DefaultLoop, true},
		{"zero bars", LoopSpec{LengthBars: 0, BPM: 120, BeatsPerBar: 4, SampleRate: 44100}, false},
		{"zero bpm", LoopSpec{LengthBars: 1, BPM: 0, BeatsPerBar: 4, SampleRate: 44100}, false},
		{"no beats", LoopSpec{LengthBars: 1, BPM: 120, BeatsPerBar: 0, SampleRate: 44100}, false},
		{"no rate", LoopSpec{LengthBars: 1, BPM: 120, BeatsPerBar: 4, SampleRate: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loop.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate got %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate got nil, want error")
			}
		})
	}
}

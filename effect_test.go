package gisele

import (
	"fmt"
	"testing"
)

func note(frame, length uint32, pitch byte) Events {
	return Events{
		{Frame: frame, Kind: NoteOn, Pitch: pitch, Velocity: 100},
		{Frame: frame + length, Kind: NoteOff, Pitch: pitch},
	}
}

func onsetsOf(events Events) (frames []uint32, pitches []byte) {
	for _, e := range events {
		if e.Kind == NoteOn {
			frames = append(frames, e.Frame)
			pitches = append(pitches, e.Pitch)
		}
	}
	return frames, pitches
}

func TestInvertChromatic(t *testing.T) {
	chain := []EffectConfig{{Kind: "invert", Parameters: map[string]int{"pivot": 60, "pitchclass": 0}}}
	events := note(0, 100, 64)
	out, err := ApplyChain(chain, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	_, pitches := onsetsOf(out)
	if len(pitches) != 1 || pitches[0] != 56 {
		t.Errorf("inverting 64 around 60 got %v, want [56]", pitches)
	}
	// inversion is an involution
	back, err := ApplyChain(chain, out, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	_, pitches = onsetsOf(back)
	if len(pitches) != 1 || pitches[0] != 64 {
		t.Errorf("double inversion got %v, want [64]", pitches)
	}
}

func TestInvertPitchClassStaysNearOctave(t *testing.T) {
	chain := []EffectConfig{{Kind: "invert", Parameters: map[string]int{"pivot": 60, "pitchclass": 1}}}
	events := note(0, 100, 76) // E5
	out, err := ApplyChain(chain, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	_, pitches := onsetsOf(out)
	if len(pitches) != 1 {
		t.Fatalf("got %d onsets, want 1", len(pitches))
	}
	// reflection of pitch class E around C is G-sharp, in the octave
	// nearest the original pitch
	if pc := pitches[0] % 12; pc != 8 {
		t.Errorf("got pitch class %d, want 8", pc)
	}
	if d := int(pitches[0]) - 76; d < -12 || d > 12 {
		t.Errorf("inverted pitch %d strays %d semitones from the original", pitches[0], d)
	}
}

func TestRetriggerPreservesSpan(t *testing.T) {
	for _, repeats := range []int{2, 3, 4, 7} {
		t.Run(fmt.Sprintf("repeats=%d", repeats), func(t *testing.T) {
			chain := []EffectConfig{{Kind: "retrigger", Parameters: map[string]int{"repeats": repeats}}}
			events := note(40, 200, 60)
			out, err := ApplyChain(chain, events, testLoop)
			if err != nil {
				t.Fatalf("ApplyChain failed: %v", err)
			}
			frames, _ := onsetsOf(out)
			if len(frames) != repeats {
				t.Fatalf("got %d onsets, want %d", len(frames), repeats)
			}
			if frames[0] != 40 {
				t.Errorf("first sub-note starts at %d, want 40", frames[0])
			}
			last := out[len(out)-1]
			if last.Kind != NoteOff || last.Frame != 240 {
				t.Errorf("last event %+v, want note off at 240", last)
			}
			if err := out.Validate(testLoop); err != nil {
				t.Errorf("retriggered sequence invalid: %v", err)
			}
		})
	}
}

func TestRetriggerGeometric(t *testing.T) {
	chain := []EffectConfig{{Kind: "retrigger", Parameters: map[string]int{"repeats": 3, "geometric": 1}}}
	events := note(0, 160, 60)
	out, err := ApplyChain(chain, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	frames, _ := onsetsOf(out)
	// halving lengths: 80, 40, 40
	want := []uint32{0, 80, 120}
	if len(frames) != len(want) {
		t.Fatalf("got onsets %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("onset %d at %d, want %d", i, frames[i], want[i])
		}
	}
}

func TestRetriggerShortNote(t *testing.T) {
	// a note shorter than the repeat count cannot be split further than
	// one frame per sub-note
	chain := []EffectConfig{{Kind: "retrigger", Parameters: map[string]int{"repeats": 16}}}
	events := note(0, 4, 60)
	out, err := ApplyChain(chain, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	frames, _ := onsetsOf(out)
	if len(frames) != 4 {
		t.Errorf("got %d onsets, want 4", len(frames))
	}
	if err := out.Validate(testLoop); err != nil {
		t.Errorf("retriggered sequence invalid: %v", err)
	}
}

func TestPitchShiftPolicies(t *testing.T) {
	var tests = []struct {
		name      string
		policy    int
		semitones int
		want      []byte // nil means the note is dropped
	}{
		{"clamp high", PolicyClamp, 30, []byte{120}},
		{"clamp low", PolicyClamp, -95, []byte{10}},
		{"drop", PolicyDrop, 30, nil},
		{"fold high", PolicyFold, 30, []byte{118}},
		{"inside", PolicyDrop, 5, []byte{105}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := []EffectConfig{{Kind: "pitchshift", Parameters: map[string]int{
				"semitones": tt.semitones, "policy": tt.policy, "lowest": 10, "highest": 120,
			}}}
			events := note(0, 100, 100)
			out, err := ApplyChain(chain, events, testLoop)
			if err != nil {
				t.Fatalf("ApplyChain failed: %v", err)
			}
			_, pitches := onsetsOf(out)
			if len(pitches) != len(tt.want) {
				t.Fatalf("got pitches %v, want %v", pitches, tt.want)
			}
			for i := range tt.want {
				if pitches[i] != tt.want[i] {
					t.Errorf("pitch %d got %d, want %d", i, pitches[i], tt.want[i])
				}
			}
			if err := out.Validate(testLoop); err != nil {
				t.Errorf("shifted sequence invalid: %v", err)
			}
		})
	}
}

func TestChainOrderMatters(t *testing.T) {
	invert := EffectConfig{Kind: "invert", Parameters: map[string]int{"pivot": 60, "pitchclass": 0}}
	shift := EffectConfig{Kind: "pitchshift", Parameters: map[string]int{"semitones": 7}}
	events := note(0, 100, 64)
	invertFirst, err := ApplyChain([]EffectConfig{invert, shift}, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	shiftFirst, err := ApplyChain([]EffectConfig{shift, invert}, events, testLoop)
	if err != nil {
		t.Fatalf("ApplyChain failed: %v", err)
	}
	_, p1 := onsetsOf(invertFirst)
	_, p2 := onsetsOf(shiftFirst)
	// invert then shift: 56+7 = 63; shift then invert: 2*60-71 = 49
	if p1[0] != 63 || p2[0] != 49 {
		t.Errorf("got %d and %d, want 63 and 49", p1[0], p2[0])
	}
}

func TestChainUnknownKind(t *testing.T) {
	chain := []EffectConfig{{Kind: "reverb"}}
	if _, err := ApplyChain(chain, note(0, 100, 60), testLoop); err == nil {
		t.Errorf("ApplyChain got nil, want error for unknown effect kind")
	}
}

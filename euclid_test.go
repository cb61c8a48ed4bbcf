package gisele

import (
	"fmt"
	"reflect"
	"testing"
)

func TestBjorklund(t *testing.T) {
	var tests = []struct {
		pulses, steps int
		want          []bool
	}{
		{0, 4, []bool{false, false, false, false}},
		{1, 1, []bool{true}},
		{4, 4, []bool{true, true, true, true}},
		{3, 4, []bool{true, false, true, true}},
		{2, 5, []bool{true, false, true, false, false}},
		{5, 8, []bool{true, false, true, true, false, true, true, false}},
		{7, 4, []bool{true, true, true, true}}, // pulses clamp to steps
		{3, 0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("bjorklund(%d,%d)", tt.pulses, tt.steps), func(t *testing.T) {
			got := bjorklund(tt.pulses, tt.steps)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("bjorklund(%d, %d) got %v, want %v", tt.pulses, tt.steps, got, tt.want)
			}
		})
	}
}

func TestGenerateEuclidPlacement(t *testing.T) {
	loop := LoopSpec{LengthBars: 1, BPM: 60, BeatsPerBar: 4, SampleRate: 100} // 400 frames
	b := BaseSeq{Kind: "euclid", Parameters: map[string]int{
		"pulses": 3, "steps": 4, "velocitydev": 0,
	}}
	events, err := b.Generate(loop)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var onsets []uint32
	for _, e := range events {
		if e.Kind == NoteOn {
			onsets = append(onsets, e.Frame)
			if e.Pitch != 60 {
				t.Errorf("onset at %d has pitch %d, want root 60", e.Frame, e.Pitch)
			}
			if e.Velocity != 100 {
				t.Errorf("onset at %d has velocity %d, want 100", e.Frame, e.Velocity)
			}
		}
	}
	want := []uint32{0, 200, 300}
	if !reflect.DeepEqual(onsets, want) {
		t.Errorf("onsets %v, want %v", onsets, want)
	}
}

func TestGenerateEuclidRotation(t *testing.T) {
	loop := LoopSpec{LengthBars: 1, BPM: 60, BeatsPerBar: 4, SampleRate: 100}
	b := BaseSeq{Kind: "euclid", Parameters: map[string]int{
		"pulses": 1, "steps": 4, "rotation": 1, "notelen": 16,
	}}
	events, err := b.Generate(loop)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var onsets []uint32
	for _, e := range events {
		if e.Kind == NoteOn {
			onsets = append(onsets, e.Frame)
		}
	}
	if want := []uint32{100}; !reflect.DeepEqual(onsets, want) {
		t.Errorf("onsets %v, want %v", onsets, want)
	}
}

func TestGenerateEuclidZeroSteps(t *testing.T) {
	b := BaseSeq{Kind: "euclid", Parameters: map[string]int{"steps": 0}}
	events, err := b.Generate(DefaultLoop)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("steps 0 should be silent, got %d events", len(events))
	}
}

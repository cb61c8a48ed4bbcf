package gisele_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Lcchy/gisele"
)

func testBase(t *testing.T) gisele.Events {
	t.Helper()
	b := gisele.BaseSeq{Kind: "euclid", Seed: 11, Parameters: map[string]int{"pulses": 5, "steps": 8}}
	events, err := b.Generate(testLoop)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return events
}

func TestCellsKeepInvariants(t *testing.T) {
	base := testBase(t)
	for kind := range gisele.CellTypes {
		t.Run(kind, func(t *testing.T) {
			cell, err := gisele.NewCell(gisele.CellConfig{Kind: kind}, 5)
			if err != nil {
				t.Fatalf("NewCell failed: %v", err)
			}
			// every cycle must yield a valid sequence, not just the first
			for cycle := 0; cycle < 8; cycle++ {
				out, err := cell.Perturb(base, testLoop)
				if err != nil {
					t.Fatalf("cycle %d: Perturb failed: %v", cycle, err)
				}
				if err := out.Validate(testLoop); err != nil {
					t.Errorf("cycle %d: %v", cycle, err)
				}
			}
		})
	}
}

func TestCellsDeterministic(t *testing.T) {
	base := testBase(t)
	for kind := range gisele.CellTypes {
		t.Run(kind, func(t *testing.T) {
			first, err := gisele.NewCell(gisele.CellConfig{Kind: kind}, 9)
			if err != nil {
				t.Fatalf("NewCell failed: %v", err)
			}
			second, err := gisele.NewCell(gisele.CellConfig{Kind: kind}, 9)
			if err != nil {
				t.Fatalf("NewCell failed: %v", err)
			}
			for cycle := 0; cycle < 4; cycle++ {
				a, err := first.Perturb(base, testLoop)
				if err != nil {
					t.Fatalf("Perturb failed: %v", err)
				}
				b, err := second.Perturb(base, testLoop)
				if err != nil {
					t.Fatalf("Perturb failed: %v", err)
				}
				if !reflect.DeepEqual(a, b) {
					t.Errorf("cycle %d: same seed diverged", cycle)
				}
			}
		})
	}
}

func TestCellBaseNotMutated(t *testing.T) {
	base := testBase(t)
	original := base.Copy()
	cell, err := gisele.NewCell(gisele.CellConfig{Kind: "jitter", Parameters: map[string]int{"timingdev": 16}}, 2)
	if err != nil {
		t.Fatalf("NewCell failed: %v", err)
	}
	if _, err := cell.Perturb(base, testLoop); err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	if !reflect.DeepEqual(base, original) {
		t.Errorf("Perturb mutated the base sequence")
	}
}

func TestJitterZeroDeviationIsIdentityOnsets(t *testing.T) {
	base := testBase(t)
	cell, err := gisele.NewCell(gisele.CellConfig{Kind: "jitter", Parameters: map[string]int{
		"timingdev": 0, "velocitydev": 0, "lengthdev": 0,
	}}, 2)
	if err != nil {
		t.Fatalf("NewCell failed: %v", err)
	}
	out, err := cell.Perturb(base, testLoop)
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	var baseOnsets, outOnsets []uint32
	for _, e := range base {
		if e.Kind == gisele.NoteOn {
			baseOnsets = append(baseOnsets, e.Frame)
		}
	}
	for _, e := range out {
		if e.Kind == gisele.NoteOn {
			outOnsets = append(outOnsets, e.Frame)
		}
	}
	if !reflect.DeepEqual(baseOnsets, outOnsets) {
		t.Errorf("zero deviation moved onsets: got %v, want %v", outOnsets, baseOnsets)
	}
}

func TestMarkovKeepsOnsetCount(t *testing.T) {
	base := testBase(t)
	cell, err := gisele.NewCell(gisele.CellConfig{Kind: "markov", Parameters: map[string]int{"strength": 128}}, 7)
	if err != nil {
		t.Fatalf("NewCell failed: %v", err)
	}
	out, err := cell.Perturb(base, testLoop)
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	count := func(s gisele.Events) int {
		n := 0
		for _, e := range s {
			if e.Kind == gisele.NoteOn {
				n++
			}
		}
		return n
	}
	if count(out) != count(base) {
		t.Errorf("markov changed onset count from %d to %d", count(base), count(out))
	}
}

func TestNewCellUnknownKind(t *testing.T) {
	if _, err := gisele.NewCell(gisele.CellConfig{Kind: "chaos"}, 1); !errors.Is(err, gisele.ErrInvalidParameter) {
		t.Errorf("NewCell got %v, want ErrInvalidParameter", err)
	}
}

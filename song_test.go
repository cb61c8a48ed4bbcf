package gisele_test

import (
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Lcchy/gisele"
)

func testSong() gisele.Song {
	return gisele.Song{
		Lines: []gisele.LineSpec{
			{
				Name: "pulse",
				Loop: gisele.DefaultLoop,
				Generator: gisele.BaseSeq{Kind: "euclid", Seed: 42, Parameters: map[string]int{
					"pulses": 5, "steps": 8, "root": 48,
				}},
				Effects: []gisele.EffectConfig{
					{Kind: "retrigger", Parameters: map[string]int{"repeats": 2}},
				},
				Cells: []gisele.CellConfig{
					{Kind: "jitter", Parameters: map[string]int{"timingdev": 4}},
				},
			},
			{
				Name: "melody",
				Loop: gisele.DefaultLoop,
				Generator: gisele.BaseSeq{Kind: "random", Seed: 7, Parameters: map[string]int{
					"events": 12, "span": 12,
				}},
			},
		},
		Routes: []gisele.ModRoute{
			{From: 0, To: 1, Source: "onsets", Target: gisele.ParamRef{Section: "generator", Key: "velocity"}, Scale: 4},
		},
	}
}

func TestSongYamlRoundTrip(t *testing.T) {
	song := testSong()
	data, err := yaml.Marshal(song)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got gisele.Song
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(song, got) {
		t.Errorf("round trip changed the song:\nbefore %+v\nafter  %+v", song, got)
	}
}

func TestSongValidate(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(*gisele.Song)
		ok     bool
	}{
		{"valid", func(s *gisele.Song) {}, true},
		{"no lines", func(s *gisele.Song) { s.Lines = nil }, false},
		{"unknown generator", func(s *gisele.Song) { s.Lines[0].Generator.Kind = "fractal" }, false},
		{"parameter out of range", func(s *gisele.Song) { s.Lines[0].Generator.Parameters["pulses"] = 999 }, false},
		{"unknown effect", func(s *gisele.Song) { s.Lines[0].Effects[0].Kind = "reverb" }, false},
		{"unknown cell", func(s *gisele.Song) { s.Lines[0].Cells[0].Kind = "chaos" }, false},
		{"route from out of range", func(s *gisele.Song) { s.Routes[0].From = 5 }, false},
		{"route to itself", func(s *gisele.Song) { s.Routes[0].To = 0 }, false},
		{"route unknown source", func(s *gisele.Song) { s.Routes[0].Source = "entropy" }, false},
		{"route unknown target key", func(s *gisele.Song) { s.Routes[0].Target.Key = "nosuchparam" }, false},
		{"route non-modulatable target", func(s *gisele.Song) { s.Routes[0].Target.Key = "channel" }, false},
		{"route to effect", func(s *gisele.Song) {
			s.Routes[0].To = 0
			s.Routes[0].From = 1
			s.Routes[0].Target = gisele.ParamRef{Section: "effect", Index: 0, Key: "repeats"}
		}, true},
		{"route to missing effect index", func(s *gisele.Song) {
			s.Routes[0].Target = gisele.ParamRef{Section: "effect", Index: 3, Key: "repeats"}
		}, false},
		{"bad loop", func(s *gisele.Song) { s.Lines[0].Loop.BPM = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song := testSong()
			tt.mutate(&song)
			err := song.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate got %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Validate got nil, want error")
			}
		})
	}
}

func TestSongCopyIsDeep(t *testing.T) {
	song := testSong()
	cp := song.Copy()
	cp.Lines[0].Generator.Parameters["pulses"] = 1
	cp.Lines[0].Effects[0].Parameters["repeats"] = 16
	cp.Routes[0].Scale = 99
	if song.Lines[0].Generator.Parameters["pulses"] == 1 {
		t.Errorf("copy shares the generator parameter map")
	}
	if song.Lines[0].Effects[0].Parameters["repeats"] == 16 {
		t.Errorf("copy shares the effect parameter map")
	}
	if song.Routes[0].Scale == 99 {
		t.Errorf("copy shares the routes slice")
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lcchy/gisele"
	"github.com/Lcchy/gisele/sequencer"
	"github.com/Lcchy/gisele/sequencer/gomidi"
	"github.com/Lcchy/gisele/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	list := flag.Bool("list", false, "List the available MIDI ports and exit.")
	outPort := flag.String("p", "", "Open the first MIDI output port whose name starts with this prefix. By default, the first available port is used.")
	inPort := flag.String("i", "", "Open a MIDI input port matching this prefix and fold incoming notes into new seeds for all lines.")
	interval := flag.Duration("interval", 10*time.Millisecond, "Process loop interval.")
	verbose := flag.Bool("verbose", false, "Print per-cycle statistics in addition to alerts.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	midiContext := gomidi.NewContext()
	defer midiContext.Close()
	if *list {
		fmt.Println("outputs:")
		for _, name := range midiContext.OutputNames() {
			fmt.Println("  " + name)
		}
		fmt.Println("inputs:")
		for _, name := range midiContext.InputNames() {
			fmt.Println("  " + name)
		}
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if err := run(midiContext, flag.Arg(0), *outPort, *inPort, *interval, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "gisele-play: %v\n", err)
		os.Exit(1)
	}
}

func run(midiContext *gomidi.RTMIDIContext, filename, outPort, inPort string, interval time.Duration, verbose bool) error {
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read file %v: %w", filename, err)
	}
	var song gisele.Song
	if err := yaml.Unmarshal(inputBytes, &song); err != nil {
		return fmt.Errorf("the song could not be parsed as .yml: %w", err)
	}
	if err := song.Validate(); err != nil {
		return fmt.Errorf("invalid song: %w", err)
	}
	if err := midiContext.OpenOutput(outPort, outPort == ""); err != nil {
		return err
	}
	capturing := false
	if inPort != "" {
		if err := midiContext.OpenInput(inPort, false); err != nil {
			return err
		}
		capturing = true
	}

	broker := sequencer.NewBroker()
	mixer, err := sequencer.NewMixer(broker, song)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mixer.Start(ctx)
	go reportAlerts(ctx, broker, verbose)

	if err := mixer.DispatchAll(sequencer.StartMsg{}); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// The sample rate only sets the resolution of the frame clock; no
	// audio is rendered. All lines of a song share it.
	rate := song.Lines[0].Loop.SampleRate
	blockFrames := uint32(float64(rate) * interval.Seconds())
	if blockFrames == 0 {
		blockFrames = 1
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mixer.Process(blockFrames, midiContext)
			if capturing {
				if seed, ok := midiContext.Seed(); ok {
					for _, id := range mixer.Lines() {
						if err := mixer.Dispatch(id, sequencer.ReseedMsg{Seed: seed + int64(id)}); err != nil {
							fmt.Fprintf(os.Stderr, "gisele-play: reseeding line %d: %v\n", id, err)
						}
					}
				}
			}
		case <-sigs:
			// Stop every line and run a final block so the forced
			// NoteOffs reach the port before we close it.
			mixer.DispatchAll(sequencer.StopMsg{})
			mixer.Process(blockFrames, midiContext)
			return nil
		}
	}
}

func reportAlerts(ctx context.Context, broker *sequencer.Broker, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-broker.ToControl:
			switch data := msg.Data.(type) {
			case sequencer.Alert:
				fmt.Fprintf(os.Stderr, "line %d: %s\n", msg.Line, data)
			case sequencer.CycleStats:
				if verbose {
					fmt.Fprintf(os.Stderr, "line %d: cycle gen=%d onsets=%d meanpitch=%d meanvel=%d\n",
						msg.Line, data.Generation, data.Onsets, data.MeanPitch, data.MeanVelocity)
				}
			}
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Plays a generative song over MIDI.\nUsage: %s [flags] songfile.yml\n", os.Args[0])
	flag.PrintDefaults()
}

package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RTMIDIContext wraps the rtmidi driver and the ports opened through it.
// A nil driver means no MIDI backend is available on this system; every
// operation then degrades to a no-op or an error, never a panic.
type RTMIDIContext struct {
	driver     *rtmididrv.Driver
	currentIn  drivers.In
	currentOut drivers.Out
	send       func(midi.Message) error
	stopListen func()
	notes      chan capturedNote
}

type capturedNote struct {
	channel  uint8
	key      uint8
	velocity uint8
}

// NewContext opens the rtmidi driver.
func NewContext() *RTMIDIContext {
	c := &RTMIDIContext{notes: make(chan capturedNote, 256)}
	// there's not much we can do if this fails, so just use c.driver = nil
	// to indicate no driver available
	c.driver, _ = rtmididrv.New()
	return c
}

func (c *RTMIDIContext) HasDriver() bool { return c.driver != nil }

// OutputNames lists the names of all MIDI output ports.
func (c *RTMIDIContext) OutputNames() []string {
	if c.driver == nil {
		return nil
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(outs))
	for _, o := range outs {
		names = append(names, o.String())
	}
	return names
}

// InputNames lists the names of all MIDI input ports.
func (c *RTMIDIContext) InputNames() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(ins))
	for _, i := range ins {
		names = append(names, i.String())
	}
	return names
}

// OpenOutput opens the first output port whose name starts with
// namePrefix, or the first port of all when takeFirst is set.
func (c *RTMIDIContext) OpenOutput(namePrefix string, takeFirst bool) error {
	if c.driver == nil {
		return errors.New("no driver available")
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, out := range outs {
		if takeFirst || strings.HasPrefix(out.String(), namePrefix) {
			if c.currentOut != nil && c.currentOut.IsOpen() {
				c.currentOut.Close()
			}
			if err := out.Open(); err != nil {
				return fmt.Errorf("opening MIDI output failed: %w", err)
			}
			c.currentOut = out
			c.send, err = midi.SendTo(out)
			if err != nil {
				out.Close()
				c.currentOut = nil
				c.send = nil
				return fmt.Errorf("binding MIDI output failed: %w", err)
			}
			return nil
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI output")
	}
	return fmt.Errorf("could not find a MIDI output starting with %q", namePrefix)
}

// OpenInput opens the first input port matching namePrefix and starts
// listening for note events, which Seed consumes.
func (c *RTMIDIContext) OpenInput(namePrefix string, takeFirst bool) error {
	if c.driver == nil {
		return errors.New("no driver available")
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if takeFirst || strings.HasPrefix(in.String(), namePrefix) {
			if c.currentIn != nil && c.currentIn.IsOpen() {
				c.stopListening()
				c.currentIn.Close()
			}
			if err := in.Open(); err != nil {
				return fmt.Errorf("opening MIDI input failed: %w", err)
			}
			stop, err := midi.ListenTo(in, c.handleMessage)
			if err != nil {
				in.Close()
				return fmt.Errorf("listening to MIDI input failed: %w", err)
			}
			c.currentIn = in
			c.stopListen = stop
			return nil
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	if !msg.GetNoteStart(&channel, &key, &velocity) {
		return
	}
	select {
	case c.notes <- capturedNote{channel: channel, key: key, velocity: velocity}: // if the channel is full, just drop the note
	default:
	}
}

func (c *RTMIDIContext) stopListening() {
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.stopListening()
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	if c.currentOut != nil && c.currentOut.IsOpen() {
		c.currentOut.Close()
	}
	c.driver.Close()
}

// Package midi implements the MIDI dispatcher (spec §4.5, C5):
// translating normalized 3-byte MIDI messages into mixer control
// events, independent of whatever transport delivered them.
package midi

import (
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/samplerbox/engine/pkg/sampler"
)

// Message is a normalized 3-byte MIDI message (spec §6, "MIDI input"):
// status byte, data0, data1. External transport adapters are
// responsible for producing these; this package never reads from a
// transport directly.
type Message [3]byte

const (
	statusNoteOff  = 0x8
	statusNoteOn   = 0x9
	statusCC       = 0xB
	statusPC       = 0xC
	ccSustainPedal = 64
)

// Dispatcher routes MIDI messages to a Mixer's control-event queue and
// to a program-change callback (spec §4.5). It holds no direct
// reference to MixerState; everything goes through Mixer.Enqueue
// (spec §5).
type Dispatcher struct {
	store           atomic.Pointer[sampler.Store]
	mixer           *sampler.Mixer
	onProgramChange func(program int)
}

// NewDispatcher creates a Dispatcher against the given mixer. store
// starts nil: note-ons are silently dropped (spec §4.5, "If absent,
// the event is silently dropped") until a preset is loaded.
// onProgramChange is invoked synchronously from Dispatch when a
// program-change message arrives; callers typically wire it to a
// preset.Loader.LoadPreset.
func NewDispatcher(mixer *sampler.Mixer, onProgramChange func(program int)) *Dispatcher {
	return &Dispatcher{mixer: mixer, onProgramChange: onProgramChange}
}

// SetStore atomically publishes the sample store used for note-on
// lookups (spec §5, "published by a single atomic pointer swap") and
// tells the mixer to reset its playback state to match (spec §4.6
// "Publication", P6).
func (d *Dispatcher) SetStore(s *sampler.Store) {
	d.store.Store(s)
	d.mixer.Enqueue(sampler.ControlEvent{Kind: sampler.ReplaceStore, NewStore: s})
}

// Dispatch interprets one normalized MIDI message (spec §4.5).
func (d *Dispatcher) Dispatch(msg Message) {
	bytes := gomidi.Message(msg[:]).Bytes()
	status := bytes[0]
	msgType := status >> 4
	data0 := bytes[1]
	data1 := bytes[2]

	// A note-on with velocity 0 is a note-off (spec §4.5).
	if msgType == statusNoteOn && data1 == 0 {
		msgType = statusNoteOff
	}

	switch msgType {
	case statusNoteOn:
		d.handleNoteOn(data0, data1)
	case statusNoteOff:
		d.handleNoteOff(data0)
	case statusCC:
		d.handleControlChange(data0, data1)
	case statusPC:
		if d.onProgramChange != nil {
			d.onProgramChange(int(data0))
		}
	}
}

func (d *Dispatcher) handleNoteOn(note, velocity byte) {
	store := d.store.Load()
	if store == nil {
		return
	}
	effective := int(note) + store.GlobalTranspose
	sample := store.Get(effective, int(velocity))
	if sample == nil {
		// SampleNotMapped: not an error, just an empty key (spec §7).
		return
	}
	d.mixer.Enqueue(sampler.ControlEvent{Kind: sampler.NoteOn, Note: effective, Sample: sample})
}

func (d *Dispatcher) handleNoteOff(note byte) {
	store := d.store.Load()
	transpose := 0
	if store != nil {
		transpose = store.GlobalTranspose
	}
	effective := int(note) + transpose
	d.mixer.Enqueue(sampler.ControlEvent{Kind: sampler.ReleaseNote, Note: effective})
}

func (d *Dispatcher) handleControlChange(controller, value byte) {
	if controller != ccSustainPedal {
		return // other controllers ignored (spec §4.5)
	}
	if value < 64 {
		d.mixer.Enqueue(sampler.ControlEvent{Kind: sampler.SustainOff})
	} else {
		d.mixer.Enqueue(sampler.ControlEvent{Kind: sampler.SustainOn})
	}
}

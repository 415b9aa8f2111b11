// Package engine wires the sample store, mixer, MIDI dispatcher, and
// preset loader into the single Engine value that owns all of the
// sampler's mutable state (spec §9, "Process-wide mutable state...
// re-architect as a single Engine value owning all mutable state").
package engine

import (
	"log/slog"
	"math"

	"github.com/samplerbox/engine/pkg/logger"
	"github.com/samplerbox/engine/pkg/midi"
	"github.com/samplerbox/engine/pkg/preset"
	"github.com/samplerbox/engine/pkg/sampler"
)

// Config carries the startup parameters the host sets once (spec §6,
// "Configuration").
type Config struct {
	SamplesDir      string
	MaxPolyphony    int
	DefaultVolumeDB float64
}

// Engine is the sampler's top-level value: every MIDI event, preset
// change, and mix callback ultimately goes through it.
type Engine struct {
	mixer      *sampler.Mixer
	dispatcher *midi.Dispatcher
	loader     *preset.Loader

	statusCallback func(string)
	log            *slog.Logger

	// lastDropped is the DroppedVoiceCount reading as of the previous
	// MixInto call, so VoicesDropped is only logged when it changes
	// rather than on every buffer (spec §4.4 step 1, P2).
	lastDropped int
}

// New builds an Engine from cfg. statusCallback receives the
// LNNN/NNNN/ENNN strings (spec §6); it may be nil.
func New(cfg Config, log *slog.Logger, statusCallback func(string)) *Engine {
	linearVolume := dbToLinear(cfg.DefaultVolumeDB)
	mixer := sampler.NewMixer(cfg.MaxPolyphony, linearVolume)

	e := &Engine{
		mixer:          mixer,
		statusCallback: statusCallback,
		log:            log,
	}

	e.dispatcher = midi.NewDispatcher(mixer, e.ChangePreset)
	e.loader = preset.NewLoader(cfg.SamplesDir, cfg.DefaultVolumeDB, slogAdapter{log}, log, e.emitStatus, e.dispatcher.SetStore)

	return e
}

// HandleMIDI dispatches one normalized 3-byte MIDI message (spec
// §4.5). Safe to call concurrently from multiple MIDI reader threads.
func (e *Engine) HandleMIDI(msg midi.Message) {
	e.dispatcher.Dispatch(msg)
}

// ChangePreset triggers the preset loader for preset number n (spec
// §4.6). Asynchronous: returns immediately, pre-empting any load
// already in progress.
func (e *Engine) ChangePreset(n int) {
	e.loader.LoadPreset(n)
}

// MixInto is the realtime pull callback the host audio layer calls
// once per output buffer (spec §4.4). out must hold frameCount*2
// int16 samples (interleaved stereo). Mixer.MixInto itself never
// touches a logger; this wrapper only logs when the cumulative
// drop count changes, so a healthy run never logs at all.
func (e *Engine) MixInto(out []int16, frameCount int) {
	e.mixer.MixInto(out, frameCount)

	if e.log == nil {
		return
	}
	if total := e.mixer.DroppedVoiceCount(); total != e.lastDropped {
		logger.VoicesDropped(e.log, total-e.lastDropped, total, e.mixer.ActiveCount())
		e.lastDropped = total
	}
}

// ActiveVoiceCount reports the current polyphony; useful for
// diagnostics and tests (P2), never called from the realtime path.
func (e *Engine) ActiveVoiceCount() int {
	return e.mixer.ActiveCount()
}

// emitStatus forwards the LNNN/NNNN/ENNN status line to the host's
// display callback. Structured logging for the same transition already
// happens in pkg/preset.Loader via pkg/logger's PresetLoading/
// PresetLoaded/PresetLoadFailed, so this stays a thin pass-through.
func (e *Engine) emitStatus(s string) {
	if e.statusCallback != nil {
		e.statusCallback(s)
	}
}

func dbToLinear(db float64) float64 {
	// 10^(db/20), spec §3 GlobalParameters default -12 dBFS.
	return math.Pow(10, db/20)
}

// slogAdapter satisfies preset.Logger with a *slog.Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Error(msg string, args ...any) { a.log().Error(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.log().Warn(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.log().Info(msg, args...) }

func (a slogAdapter) log() *slog.Logger {
	if a.l == nil {
		return slog.Default()
	}
	return a.l
}

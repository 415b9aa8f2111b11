package sampler

// Voice is one currently-playing instance of a Sample (spec §3,
// "Voice"; Glossary). It is a plain state record: all playback
// behavior lives in Mixer.MixInto. A Voice is owned exclusively by the
// mixer goroutine once it has been pushed onto the active list.
type Voice struct {
	Sample *Sample

	// Pos is the fractional read position into Sample, in frames.
	Pos float64

	// Note is the MIDI note this voice was triggered at (after
	// transpose), used to derive the pitch-shift ratio.
	Note int

	// Fading and FadePos track release-envelope state. Fading is set
	// by Fadeout and never cleared; FadePos only advances.
	Fading  bool
	FadePos int

	// retired is set by the mixer once the voice has finished playing
	// (non-looping end reached, or fade-out complete) and is swept out
	// of the active list at the end of the buffer.
	retired bool
}

// NewVoice creates a Voice for sample starting playback at the given
// effective note.
func NewVoice(sample *Sample, note int) *Voice {
	return &Voice{Sample: sample, Note: note}
}

// Fadeout puts the voice into its release phase. Idempotent (R1): a
// second call while already fading has no additional effect.
func (v *Voice) Fadeout() {
	if v.Fading {
		return
	}
	v.Fading = true
	v.FadePos = 0
}

// Stop marks the voice for removal at the mixer's next sweep, without
// running the fade-out envelope. The mixer calls it when a voice reaches
// the end of a non-looping sample, finishes its fade, or is cut by the
// polyphony cap.
func (v *Voice) Stop() {
	v.retired = true
}

// Retired reports whether the mixer has finished with this voice.
func (v *Voice) Retired() bool {
	return v.retired
}

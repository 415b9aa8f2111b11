package sampler

import "math"

// PitchTableSize is the number of tabulated playback speeds (spec §3,
// "Pitch table"): one per semitone across a seven-octave span, indexed
// by note-in-sample.MIDINote+PitchTableOffset.
const PitchTableSize = 84

// PitchTableOffset centers the table so that note == sample.MIDINote
// (no transposition) lands near the middle of the table rather than at
// index 0, giving headroom for both downward and upward pitch shifts.
const PitchTableOffset = 42

// FadeoutLength is the number of frames the release envelope takes to
// reach silence (spec §3, "Fade envelope"). The original fixed this at
// 30000 frames (~0.68s at 44.1kHz); kept unchanged here.
const FadeoutLength = 30000

// speedTable[i] = 2^((i-PitchTableOffset)/12), the playback-rate
// multiplier for a pitch shift of (i - PitchTableOffset) semitones. Precomputed once at
// package init so the realtime mixer never touches math.Pow.
var speedTable [PitchTableSize]float32

// fadeoutTable holds the release envelope, FadeoutLength samples of a
// 6th-power decay from 1 to 0, followed by FadeoutLength zeros so a
// voice that begins fading near fade_pos==FadeoutLength can still read
// one buffer past the end safely (spec §3, B3).
var fadeoutTable [2 * FadeoutLength]float32

func init() {
	for i := 0; i < PitchTableSize; i++ {
		speedTable[i] = float32(math.Pow(2, float64(i-PitchTableOffset)/12))
	}

	for j := 0; j < FadeoutLength; j++ {
		t := float64(FadeoutLength-1-j) / float64(FadeoutLength-1)
		fadeoutTable[j] = float32(math.Pow(t, 6))
	}
	// fadeoutTable[FadeoutLength:] stays zero-valued.
}

// pitchStep returns the fractional number of source frames to advance
// per output frame for a voice playing "note" from a sample whose
// native pitch is "sampleNote". Out-of-range shifts saturate to the
// nearest tabulated value (spec B1).
func pitchStep(note, sampleNote int) float32 {
	idx := note - sampleNote + PitchTableOffset
	if idx < 0 {
		idx = 0
	}
	if idx >= PitchTableSize {
		idx = PitchTableSize - 1
	}
	return speedTable[idx]
}

// fadeoutGain returns the release-envelope gain at fade_pos i. Callers
// only ever pass 0 <= i < FadeoutLength before retiring the voice, but
// the table is padded to 2*FadeoutLength so a one-buffer overrun is
// always safe to read.
func fadeoutGain(i int) float32 {
	if i >= len(fadeoutTable) {
		return 0
	}
	return fadeoutTable[i]
}

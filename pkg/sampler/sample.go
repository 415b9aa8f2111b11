// Package sampler holds the in-memory sample/voice/mixer model: the
// realtime playback path of the sampler engine (spec §3, §4.2-4.4).
package sampler

// NoLoop is the sentinel LoopStart value meaning "this sample does not
// loop" (spec §3, Sample.loop_start).
const NoLoop = -1

// Sample is an immutable, decoded audio sample: interleaved stereo
// 16-bit PCM plus loop metadata. Once constructed a Sample is never
// mutated; it is safe to share between the loader, the store, and any
// number of Voices across goroutines.
type Sample struct {
	// PCM holds interleaved stereo int16 samples: PCM[2*i] is the left
	// channel of frame i, PCM[2*i+1] is the right channel.
	PCM []int16

	// FrameCount is the number of stereo frames in PCM.
	FrameCount int

	// LoopStart is the frame index where the loop begins, or NoLoop.
	LoopStart int

	// LoopEnd is the frame index where the loop wraps back to
	// LoopStart. Only meaningful when LoopStart != NoLoop. Invariant:
	// 0 <= LoopStart < LoopEnd <= FrameCount.
	LoopEnd int

	// MIDINote and Velocity are the identity tuple this sample is
	// keyed by in a Store.
	MIDINote int
	Velocity int
}

// Loops reports whether the sample has a loop region.
func (s *Sample) Loops() bool {
	return s.LoopStart != NoLoop
}

// FrameAt returns the stereo frame at the given frame index. Callers
// must keep idx within [0, FrameCount).
func (s *Sample) FrameAt(idx int) (left, right int16) {
	return s.PCM[2*idx], s.PCM[2*idx+1]
}

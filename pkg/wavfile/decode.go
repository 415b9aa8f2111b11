// Package wavfile decodes RIFF/WAVE audio files into the stereo int16
// PCM + loop-point representation the sampler engine plays (spec §4.1).
//
// There is no stdlib reader for WAVE files, and the library the rest
// of this pack reaches for (ebiten/audio/wav, used by the teacher's
// own wav_player.go) decodes PCM but discards the "smpl" loop-point
// chunk entirely, so it cannot serve the loop-aware decode this engine
// needs. This package is a direct, idiom-adapted port of the chunk
// walk in original_source/samplerbox.py's waveread (a
// wave.Wave_read subclass reading fmt /data/cue /smpl chunks by hand).
package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadFormat is returned when a file cannot be parsed as the
// supported subset of RIFF/WAVE (spec §4.1).
var ErrBadFormat = errors.New("wavfile: bad format")

// Decoded is the result of decoding one WAVE file.
type Decoded struct {
	// PCM holds interleaved stereo int16 samples, regardless of the
	// source's channel count (mono sources are duplicated to both
	// channels at decode time).
	PCM []int16

	FrameCount int

	// LoopStart/LoopEnd are frame indices, or LoopStart == NoLoop if
	// the file declared no sampler loop.
	LoopStart int
	LoopEnd   int
}

// NoLoop mirrors sampler.NoLoop; kept as its own constant so this
// package has no dependency on pkg/sampler.
const NoLoop = -1

const (
	tagRIFF = "RIFF"
	tagWAVE = "WAVE"
	tagFmt  = "fmt "
	tagData = "data"
	tagSmpl = "smpl"
)

// Decode parses a RIFF/WAVE file's bytes, returning 16-bit stereo PCM
// and loop metadata. Accepts 16-bit and 24-bit PCM, mono or stereo
// (spec §4.1).
func Decode(data []byte) (*Decoded, error) {
	if len(data) < 12 || string(data[0:4]) != tagRIFF || string(data[8:12]) != tagWAVE {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrBadFormat)
	}

	var (
		channels      int
		bitsPerSample int
		haveFmt       bool
		pcmData       []byte
		haveData      bool
		loopStart     = NoLoop
		loopEndBound  int
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			// Truncated/corrupt chunk; stop parsing what we have.
			break
		}

		switch chunkID {
		case tagFmt:
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrBadFormat)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true

		case tagData:
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrBadFormat)
			}
			pcmData = data[body : body+chunkSize]
			haveData = true

		case tagSmpl:
			// manufacturer, product, samplePeriod, midiUnityNote,
			// midiPitchFraction, smpteFormat, smpteOffset,
			// numSampleLoops, samplerData: 9 uint32 fields (36 bytes),
			// then numSampleLoops * 24-byte loop records.
			if chunkSize >= 36 {
				numLoops := int(binary.LittleEndian.Uint32(data[body+28 : body+32]))
				if numLoops > 0 {
					loopRec := body + 36
					if loopRec+24 <= body+chunkSize {
						start := int(binary.LittleEndian.Uint32(data[loopRec+8 : loopRec+12]))
						end := int(binary.LittleEndian.Uint32(data[loopRec+12 : loopRec+16]))
						loopStart = start
						// Store end+2 as the usable length bound (spec
						// §4.1; §9 flags the "+2" as possibly an
						// off-by-one compensation in the original
						// sampler-chunk parser, preserved as-is).
						loopEndBound = end + 2
					}
				}
			}
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt || !haveData {
		return nil, fmt.Errorf("%w: fmt chunk and/or data chunk missing", ErrBadFormat)
	}

	samples, err := toInt16(pcmData, bitsPerSample)
	if err != nil {
		return nil, err
	}

	frameCount := len(samples)
	if channels == 2 {
		frameCount /= 2
	} else if channels != 1 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrBadFormat, channels)
	}

	var pcmStereo []int16
	if channels == 1 {
		pcmStereo = make([]int16, frameCount*2)
		for i, s := range samples {
			pcmStereo[2*i] = s
			pcmStereo[2*i+1] = s
		}
	} else {
		pcmStereo = samples
	}

	d := &Decoded{
		PCM:        pcmStereo,
		FrameCount: frameCount,
		LoopStart:  NoLoop,
	}

	if loopStart != NoLoop {
		d.LoopStart = loopStart
		d.LoopEnd = loopEndBound
		if d.LoopEnd > frameCount {
			d.LoopEnd = frameCount
		}
	}

	return d, nil
}

// toInt16 converts raw little-endian PCM bytes at the given bit depth
// into int16 samples. 24-bit input is narrowed by discarding the
// lowest byte of each sample (spec §4.1: "matches the source's use of
// its binary24-to-int16 helper").
func toInt16(data []byte, bitsPerSample int) ([]int16, error) {
	switch bitsPerSample {
	case 16:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("%w: odd byte count for 16-bit PCM", ErrBadFormat)
		}
		out := make([]int16, len(data)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
		}
		return out, nil

	case 24:
		if len(data)%3 != 0 {
			return nil, fmt.Errorf("%w: byte count not a multiple of 3 for 24-bit PCM", ErrBadFormat)
		}
		n := len(data) / 3
		out := make([]int16, n)
		for i := 0; i < n; i++ {
			b1 := data[3*i+1]
			b2 := data[3*i+2]
			out[i] = int16(uint16(b1) | uint16(b2)<<8)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unsupported sample width %d bits", ErrBadFormat, bitsPerSample)
	}
}

// Command samplerbox is the reference host: it opens a real audio
// device via oto, reads MIDI over the console line protocol, and
// drives the core engine's pull-style mixing function (spec §1,
// "external collaborators... audio device opening... the core exposes
// a pull-style mixing function that the host audio layer calls").
package main

import (
	"fmt"
	"os"

	"github.com/ebitengine/oto/v3"

	"github.com/samplerbox/engine/pkg/cli"
	"github.com/samplerbox/engine/pkg/engine"
	"github.com/samplerbox/engine/pkg/logger"
	"github.com/samplerbox/engine/pkg/transport"
)

// sampleRate and framesPerBuffer match spec §6 "Audio output": 44.1
// kHz, stereo, 16-bit signed, 512-frame buffers.
const (
	sampleRate      = 44100
	framesPerBuffer = 512
)

func main() {
	cfg, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.ShowHelp {
		cli.PrintHelp()
		return
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Get()

	eng := engine.New(engine.Config{
		SamplesDir:      cfg.SamplesDir,
		MaxPolyphony:    cfg.MaxPolyphony,
		DefaultVolumeDB: cfg.GlobalVolumeDB,
	}, log, func(status string) {
		fmt.Println(status)
	})

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		// AudioDeviceOpenFailed (spec §7): fatal at startup.
		log.Error("failed to open audio device", "err", err)
		os.Exit(1)
	}
	<-ready

	player := otoCtx.NewPlayer(&mixSource{engine: eng, frames: framesPerBuffer})
	player.Play()
	log.Info("audio device opened", "device", cfg.AudioDeviceID, "sample_rate", sampleRate)

	eng.ChangePreset(cfg.InitialPreset)

	if cfg.EnableConsole || cfg.EnableUSB {
		scanner := transport.NewLineScanner(os.Stdin, eng.HandleMIDI)
		if err := scanner.Run(); err != nil {
			log.Error("MIDI line scanner stopped", "err", err)
		}
	} else {
		select {}
	}
}

// mixSource adapts Engine.MixInto to io.Reader, the shape oto.Player
// expects: it is pulled for PCM bytes exactly the way spec §6 describes
// the host audio layer invoking the core's pull-style mixing function.
type mixSource struct {
	engine *engine.Engine
	frames int
	buf    []int16
}

func (m *mixSource) Read(p []byte) (int, error) {
	need := len(p) / 4 // 2 channels * 2 bytes
	if need > m.frames {
		need = m.frames
	}
	if need == 0 {
		return 0, nil
	}
	if cap(m.buf) < need*2 {
		m.buf = make([]int16, need*2)
	}
	buf := m.buf[:need*2]
	m.engine.MixInto(buf, need)

	n := 0
	for _, s := range buf {
		p[n] = byte(uint16(s))
		p[n+1] = byte(uint16(s) >> 8)
		n += 2
	}
	return n, nil
}

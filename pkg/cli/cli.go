// Package cli parses the command-line configuration for the sampler host.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the settings the host sets once at startup (spec §6
// "Configuration"): audio device id, samples directory, MAX_POLYPHONY,
// default global volume, and which MIDI adapters are enabled.
type Config struct {
	SamplesDir     string  // root directory containing preset subdirectories
	AudioDeviceID  int     // sound card index; the reference host logs it but does not pass it to oto
	MaxPolyphony   int     // voice cap enforced by the mixer
	GlobalVolumeDB float64 // default global volume in dBFS
	LogLevel       string  // debug, info, warn, error
	EnableUSB      bool    // USB-CDC line-protocol MIDI adapter
	EnableConsole  bool    // stdin console MIDI adapter
	InitialPreset  int     // preset number to load on startup
	ShowHelp       bool
}

// ParseArgs parses args (excluding the program name) into a Config,
// falling back to environment variables and sensible defaults.
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("samplerbox", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.SamplesDir, "samples-dir", ".", "root directory containing preset subdirectories")
	fs.IntVar(&cfg.AudioDeviceID, "audio-device", 1, "audio device id")
	fs.IntVar(&cfg.MaxPolyphony, "max-polyphony", 80, "maximum simultaneous voices")
	fs.Float64Var(&cfg.GlobalVolumeDB, "volume", -12.0, "default global volume in dBFS")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.EnableUSB, "usb-midi", true, "enable USB-CDC line-protocol MIDI adapter")
	fs.BoolVar(&cfg.EnableConsole, "console-midi", false, "enable console MIDI adapter")
	fs.IntVar(&cfg.InitialPreset, "preset", 0, "preset number to load on startup")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "show this help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	logLevelSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			logLevelSet = true
		}
	})
	if !logLevelSet {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			cfg.LogLevel = strings.ToLower(env)
		}
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.MaxPolyphony <= 0 {
		return nil, fmt.Errorf("max-polyphony must be positive, got %d", cfg.MaxPolyphony)
	}

	if env := os.Getenv("AUDIO_DEVICE_ID"); env != "" {
		if id, err := strconv.Atoi(env); err == nil {
			cfg.AudioDeviceID = id
		}
	}

	return cfg, nil
}

// PrintHelp prints usage information to stdout.
func PrintHelp() {
	fmt.Fprint(os.Stdout, `samplerbox - polyphonic sample-playback engine host

Usage:
  samplerbox [options]

Options:
  -samples-dir <path>      root directory containing preset subdirectories (default ".")
  -audio-device <id>       audio device id (default 1)
  -max-polyphony <n>       maximum simultaneous voices (default 80)
  -volume <db>             default global volume in dBFS (default -12.0)
  -log-level <level>       debug, info, warn, error (default info)
  -usb-midi                enable USB-CDC line-protocol MIDI adapter (default true)
  -console-midi            enable console MIDI adapter
  -preset <n>              preset number to load on startup
  -help                    show this help

Environment variables:
  LOG_LEVEL                 overrides -log-level when unset
  AUDIO_DEVICE_ID            overrides -audio-device
`)
}

// Package logger wraps log/slog with the level-from-string initialization
// the host config (pkg/cli) works with, plus the structured fields the
// rest of this engine logs by: preset-load status transitions and
// polyphony-cap voice drops.
package logger

import (
	"fmt"
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// Init configures the global logger for the given level (debug, info,
// warn, error) and installs it as slog's default.
func Init(level string) error {
	var slogLevel slog.Level

	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

// Get returns the process-wide logger, falling back to slog's default
// before Init has run (e.g. in tests).
func Get() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// PresetLoading logs that preset n has started loading (spec §6,
// "Status display": the LNNN status line).
func PresetLoading(log *slog.Logger, preset int) {
	log.Info("preset loading", "preset", preset)
}

// PresetLoaded logs a preset that finished loading and was published,
// along with how many (note, velocity) cells it mapped (spec §4.6; the
// NNNN status line once a Store is installed).
func PresetLoaded(log *slog.Logger, preset, sampleCount int) {
	log.Info("preset loaded", "preset", preset, "samples", sampleCount)
}

// PresetLoadFailed logs a preset that could not be loaded: either its
// directory was missing or it mapped zero samples (spec §4.6, §9; the
// ENNN status line). The previously-loaded store, if any, is left in
// place.
func PresetLoadFailed(log *slog.Logger, preset int) {
	log.Warn("preset load failed", "preset", preset)
}

// VoicesDropped logs a polyphony-cap head-truncation event (spec §4.4
// step 1, P2): dropped is how many additional voices were cut since
// the last time this was logged, total is the running count, and
// active is how many voices remain after truncation. Never called from
// the mixer's own realtime path (Mixer.MixInto never touches a
// logger); callers poll Mixer.DroppedVoiceCount between buffers.
func VoicesDropped(log *slog.Logger, dropped, total, active int) {
	log.Warn("voices dropped to polyphony cap", "dropped", dropped, "total_dropped", total, "active", active)
}

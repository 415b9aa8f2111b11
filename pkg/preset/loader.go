// Package preset implements the preset loader (spec §4.6, C6):
// directory discovery, the definition.txt grammar, decoding samples,
// and pre-emptible asynchronous loading that publishes a new
// sampler.Store once complete.
package preset

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/samplerbox/engine/pkg/logger"
	"github.com/samplerbox/engine/pkg/sampler"
	"github.com/samplerbox/engine/pkg/wavfile"
)

// DefaultGlobalVolumeDB is the conventional default global volume
// (spec §3, GlobalParameters default -12 dBFS) that callers may pass to
// NewLoader. The loader itself starts every preset from the
// defaultVolumeDB it was given.
const DefaultGlobalVolumeDB = -12.0

// Logger is the subset of *slog.Logger used here, so tests can supply
// a stub without depending on pkg/logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Loader scans samplesDir for numbered preset directories and builds a
// sampler.Store from them on a dedicated goroutine, pre-empting any
// load already in progress (spec §4.6 "Pre-emption", §5).
type Loader struct {
	samplesDir      string
	defaultVolumeDB float64
	log             Logger
	slogLog         *slog.Logger

	onStatus func(string)
	onLoaded func(*sampler.Store)

	mu     sync.Mutex
	cancel context.CancelFunc
	// generation increments on every LoadPreset call; a load that
	// finishes after being superseded checks its own generation before
	// publishing, so "only the most-recent preset request is ultimately
	// honored" (spec §4.6) even if cancellation races the finish line.
	generation int
}

// NewLoader creates a Loader rooted at samplesDir. defaultVolumeDB is
// the global volume (dBFS) a preset starts from before any %%volume
// directive in its definition.txt scales it further (spec §3
// GlobalParameters, §6 Configuration). onStatus receives the
// LNNN/NNNN/ENNN strings (spec §6 "Status display"); onLoaded receives
// each newly built Store for atomic publication. slogLog, if non-nil,
// additionally receives structured preset-load log events (pkg/logger
// PresetLoading/PresetLoaded/PresetLoadFailed); it may be nil in tests.
func NewLoader(samplesDir string, defaultVolumeDB float64, log Logger, slogLog *slog.Logger, onStatus func(string), onLoaded func(*sampler.Store)) *Loader {
	return &Loader{
		samplesDir:      samplesDir,
		defaultVolumeDB: defaultVolumeDB,
		log:             log,
		slogLog:         slogLog,
		onStatus:        onStatus,
		onLoaded:        onLoaded,
	}
}

// LoadPreset pre-empts any in-progress load and starts loading preset
// number n asynchronously. It never blocks the caller.
func (l *Loader) LoadPreset(n int) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	go l.run(ctx, gen, n)
}

func (l *Loader) run(ctx context.Context, gen int, preset int) {
	dir, found := findPresetDir(l.samplesDir, preset)
	if !found {
		// spec §9 flags this as surprising but unchanged: the old
		// store is left in place, only the status line changes.
		l.onStatus(fmt.Sprintf("E%03d", preset))
		if l.slogLog != nil {
			logger.PresetLoadFailed(l.slogLog, preset)
		}
		return
	}

	l.onStatus(fmt.Sprintf("L%03d", preset))
	if l.slogLog != nil {
		logger.PresetLoading(l.slogLog, preset)
	}

	builder := sampler.NewBuilder(dbToLinear(l.defaultVolumeDB))

	defPath := filepath.Join(dir, "definition.txt")
	var loadErr error
	if _, err := os.Stat(defPath); err == nil {
		loadErr = l.loadWithDefinition(ctx, dir, defPath, builder)
	} else {
		loadErr = l.loadBareFiles(ctx, dir, builder)
	}

	if ctx.Err() != nil {
		// Pre-empted: abandon this builder entirely (spec §4.6
		// "Pre-emption").
		return
	}
	if loadErr != nil {
		l.log.Error("preset load failed", "preset", preset, "err", loadErr)
	}

	if !l.stillCurrent(gen) {
		return
	}

	if builder.Len() == 0 {
		l.onStatus(fmt.Sprintf("E%03d", preset))
		if l.slogLog != nil {
			logger.PresetLoadFailed(l.slogLog, preset)
		}
		return
	}

	store := builder.Build()
	l.onLoaded(store)
	l.onStatus(fmt.Sprintf("%04d", preset))
	if l.slogLog != nil {
		logger.PresetLoaded(l.slogLog, preset, store.Len())
	}
}

func (l *Loader) stillCurrent(gen int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.generation
}

// findPresetDir finds the subdirectory of root whose name starts with
// the decimal preset number followed by a space (spec §4.6, §6).
func findPresetDir(root string, preset int) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	prefix := strconv.Itoa(preset) + " "
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return filepath.Join(root, e.Name()), true
		}
	}
	return "", false
}

// loadBareFiles implements the no-definition-file mode: <dir>/N.wav
// for N in 0..126 maps to (N, velocity=127) (spec §4.6 mode 2).
func (l *Loader) loadBareFiles(ctx context.Context, dir string, b *sampler.Builder) error {
	for n := 0; n <= 126; n++ {
		if ctx.Err() != nil {
			return nil
		}
		path := filepath.Join(dir, fmt.Sprintf("%d.wav", n))
		data, err := os.ReadFile(path)
		if err != nil {
			continue // no file for this note; not an error
		}
		sample, err := decodeSample(data, n, 127)
		if err != nil {
			l.log.Warn("bad audio file, skipping", "file", path, "err", err)
			continue
		}
		b.Put(sample)
	}
	return nil
}

// loadWithDefinition implements the definition.txt grammar (spec
// §4.6 mode 1).
func (l *Loader) loadWithDefinition(ctx context.Context, dir, defPath string, b *sampler.Builder) error {
	f, err := os.Open(defPath)
	if err != nil {
		return fmt.Errorf("opening definition file: %w", err)
	}
	defer f.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing preset directory: %w", err)
	}
	var filenames []string
	for _, e := range entries {
		if !e.IsDir() && e.Name() != "definition.txt" {
			filenames = append(filenames, e.Name())
		}
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.Contains(line, "%%volume") {
			if err := applyVolumeDirective(line, b); err != nil {
				l.log.Warn("bad definition line, skipping", "line", lineNo, "err", err)
			}
			continue
		}
		if strings.Contains(line, "%%transpose") {
			if err := applyTransposeDirective(line, b); err != nil {
				l.log.Warn("bad definition line, skipping", "line", lineNo, "err", err)
			}
			continue
		}

		r, err := compileRule(line)
		if err != nil {
			l.log.Warn("bad definition line, skipping", "line", lineNo, "err", err)
			continue
		}

		for _, fname := range filenames {
			if ctx.Err() != nil {
				return nil
			}
			midinote, velocity, ok := r.match(fname)
			if !ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, fname))
			if err != nil {
				l.log.Warn("bad audio file, skipping", "file", fname, "err", err)
				continue
			}
			sample, err := decodeSample(data, midinote, velocity)
			if err != nil {
				l.log.Warn("bad audio file, skipping", "file", fname, "err", err)
				continue
			}
			b.Put(sample)
		}
	}
	return scanner.Err()
}

func applyVolumeDirective(line string, b *sampler.Builder) error {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("missing '=' in %%volume directive")
	}
	db, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return fmt.Errorf("bad %%volume value: %w", err)
	}
	b.ScaleGlobalVolume(dbToLinear(db))
	return nil
}

func applyTransposeDirective(line string, b *sampler.Builder) error {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("missing '=' in %%transpose directive")
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("bad %%transpose value: %w", err)
	}
	b.SetGlobalTranspose(n)
	return nil
}

func decodeSample(data []byte, midinote, velocity int) (*sampler.Sample, error) {
	d, err := wavfile.Decode(data)
	if err != nil {
		return nil, err
	}
	loopStart := sampler.NoLoop
	if d.LoopStart != wavfile.NoLoop {
		loopStart = d.LoopStart
	}
	return &sampler.Sample{
		PCM:        d.PCM,
		FrameCount: d.FrameCount,
		LoopStart:  loopStart,
		LoopEnd:    d.LoopEnd,
		MIDINote:   midinote,
		Velocity:   velocity,
	}, nil
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

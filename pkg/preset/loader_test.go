package preset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samplerbox/engine/pkg/sampler"
)

// testLogger collects log calls instead of writing anywhere, so tests
// can assert on malformed-input handling without depending on slog.
type testLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *testLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *testLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *testLogger) Info(msg string, args ...any) {}

func le16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func le32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }

func chunk(id string, body []byte) []byte {
	out := append([]byte(id), le32(uint32(len(body)))...)
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func fmtChunk16Mono() []byte {
	body := append([]byte{}, le16(1)...)
	body = append(body, le16(1)...)
	body = append(body, le32(44100)...)
	body = append(body, le32(44100*2)...)
	body = append(body, le16(2)...)
	body = append(body, le16(16)...)
	return chunk("fmt ", body)
}

func riffWave(chunks ...[]byte) []byte {
	var body []byte
	body = append(body, []byte("WAVE")...)
	for _, c := range chunks {
		body = append(body, c...)
	}
	out := append([]byte("RIFF"), le32(uint32(len(body)))...)
	return append(out, body...)
}

func tinyWAV(frames int) []byte {
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(i)))
	}
	return riffWave(fmtChunk16Mono(), chunk("data", pcm))
}

func waitForLoad(t *testing.T, ch chan *sampler.Store) *sampler.Store {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for preset load to complete")
		return nil
	}
}

func newTestLoader(t *testing.T, samplesDir string) (*Loader, chan *sampler.Store, *testLogger) {
	t.Helper()
	log := &testLogger{}
	loaded := make(chan *sampler.Store, 4)
	l := NewLoader(samplesDir, DefaultGlobalVolumeDB, log, nil, func(string) {}, func(s *sampler.Store) { loaded <- s })
	return l, loaded, log
}

func TestFindPresetDirMatchesNumericPrefix(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "3 Piano"), 0o755); err != nil {
		t.Fatal(err)
	}
	dir, ok := findPresetDir(root, 3)
	if !ok {
		t.Fatal("expected preset 3 to be found")
	}
	if filepath.Base(dir) != "3 Piano" {
		t.Fatalf("got %q, want \"3 Piano\"", dir)
	}
}

func TestFindPresetDirMissingReturnsFalse(t *testing.T) {
	root := t.TempDir()
	if _, ok := findPresetDir(root, 99); ok {
		t.Fatal("expected no match for a missing preset number")
	}
}

// TestLoadBareFilesNoDefinition covers mode 2: numbered .wav files with
// no definition.txt all map to velocity 127.
func TestLoadBareFilesNoDefinition(t *testing.T) {
	root := t.TempDir()
	presetDir := filepath.Join(root, "0 Kit")
	if err := os.Mkdir(presetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(presetDir, "60.wav"), tinyWAV(100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(presetDir, "61.wav"), tinyWAV(100), 0o644); err != nil {
		t.Fatal(err)
	}

	l, loaded, _ := newTestLoader(t, root)
	l.LoadPreset(0)
	store := waitForLoad(t, loaded)

	if store.Len() != 2 {
		t.Fatalf("store.Len() = %d, want 2", store.Len())
	}
	if s := store.Get(60, 127); s == nil {
		t.Fatal("expected a sample at (60, 127)")
	}
}

// TestLoadWithDefinitionFile covers mode 1: definition.txt with a
// %midinote token and a %%volume directive.
func TestLoadWithDefinitionFile(t *testing.T) {
	root := t.TempDir()
	presetDir := filepath.Join(root, "1 Strings")
	if err := os.Mkdir(presetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(presetDir, "72.wav"), tinyWAV(100), 0o644); err != nil {
		t.Fatal(err)
	}
	def := "%midinote.wav\n%%volume=-6\n"
	if err := os.WriteFile(filepath.Join(presetDir, "definition.txt"), []byte(def), 0o644); err != nil {
		t.Fatal(err)
	}

	l, loaded, _ := newTestLoader(t, root)
	l.LoadPreset(1)
	store := waitForLoad(t, loaded)

	if s := store.Get(72, 127); s == nil {
		t.Fatal("expected a sample mapped at midi note 72")
	}
	wantVol := dbToLinear(DefaultGlobalVolumeDB) * dbToLinear(-6)
	if diff := store.GlobalVolume - wantVol; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("GlobalVolume = %v, want %v", store.GlobalVolume, wantVol)
	}
}

// TestLoadMissingPresetEmitsErrorStatus covers the documented surprising
// behavior: a missing preset directory reports an error status but the
// loader never calls onLoaded (so any prior store is left in place).
func TestLoadMissingPresetEmitsErrorStatus(t *testing.T) {
	root := t.TempDir()
	log := &testLogger{}
	loaded := make(chan *sampler.Store, 1)
	var statuses []string
	var mu sync.Mutex
	l := NewLoader(root, DefaultGlobalVolumeDB, log, nil, func(s string) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}, func(s *sampler.Store) { loaded <- s })

	l.LoadPreset(42)
	time.Sleep(100 * time.Millisecond)

	select {
	case <-loaded:
		t.Fatal("onLoaded must not be called for a missing preset")
	default:
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 || statuses[len(statuses)-1] != "E042" {
		t.Fatalf("statuses = %v, want a trailing E042", statuses)
	}
}

// TestLoadPresetPreemptsPriorLoad covers E4: issuing a second
// LoadPreset before the first completes must result in only the most
// recent preset's store ever being published.
func TestLoadPresetPreemptsPriorLoad(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"0 A", "1 B"} {
		dir := filepath.Join(root, name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "60.wav"), tinyWAV(50), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	l, loaded, _ := newTestLoader(t, root)
	l.LoadPreset(0)
	l.LoadPreset(1)

	store := waitForLoad(t, loaded)
	if store.Len() != 1 {
		t.Fatalf("store.Len() = %d, want 1", store.Len())
	}

	select {
	case extra := <-loaded:
		t.Fatalf("expected only one store to be published, got a second: %v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLoadSkipsMalformedDefinitionLineWithoutAborting(t *testing.T) {
	root := t.TempDir()
	presetDir := filepath.Join(root, "2 Mixed")
	if err := os.Mkdir(presetDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(presetDir, "60.wav"), tinyWAV(50), 0o644); err != nil {
		t.Fatal(err)
	}
	def := ",,,\n%midinote.wav\n"
	if err := os.WriteFile(filepath.Join(presetDir, "definition.txt"), []byte(def), 0o644); err != nil {
		t.Fatal(err)
	}

	l, loaded, log := newTestLoader(t, root)
	l.LoadPreset(2)
	store := waitForLoad(t, loaded)

	if store.Len() != 1 {
		t.Fatalf("store.Len() = %d, want 1 (malformed line must be skipped, not fatal)", store.Len())
	}
	if len(log.warns) == 0 {
		t.Fatal("expected a warning to be logged for the malformed line")
	}
}

package sampler

// Key identifies a Sample by its (midi-note, velocity) identity tuple.
type Key struct {
	MIDINote int
	Velocity int
}

// Store is an immutable snapshot mapping (midi_note, velocity) to
// Sample (spec §3, "SampleStore"). The realtime thread only ever sees
// one Store at a time; the preset loader builds a new one off-thread
// and publishes it atomically (spec §5).
//
// Store intentionally does not implement nearest-velocity or
// nearest-note fallback: a lookup miss is not an error, it is simply
// an unmapped key (spec §9, "Open questions").
type Store struct {
	samples map[Key]*Sample

	// GlobalVolume and GlobalTranspose are published together with the
	// samples because the preset definition grammar's %%volume and
	// %%transpose lines are store-scoped (spec §4.6).
	GlobalVolume    float64
	GlobalTranspose int
}

// EmptyStore returns a zero-sample store. The preset loader never
// installs it: when a requested preset directory does not exist, the
// old store stays in place (spec §9); callers that want an empty store
// instead can install EmptyStore explicitly.
func EmptyStore(globalVolume float64) *Store {
	return &Store{
		samples:      make(map[Key]*Sample),
		GlobalVolume: globalVolume,
	}
}

// Get returns the exact (midiNote, velocity) match, or nil if absent.
func (s *Store) Get(midiNote, velocity int) *Sample {
	if s == nil {
		return nil
	}
	return s.samples[Key{midiNote, velocity}]
}

// Len reports how many (note, velocity) cells are populated.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.samples)
}

// Builder accumulates samples off the realtime thread before they are
// published as a single immutable Store (spec §4.6, "install the new
// SampleStore atomically").
type Builder struct {
	samples         map[Key]*Sample
	globalVolume    float64
	globalTranspose int
}

// NewBuilder starts a Builder with the given default global volume
// (linear gain, spec §3 default -12 dBFS unless overridden).
func NewBuilder(defaultGlobalVolume float64) *Builder {
	return &Builder{
		samples:      make(map[Key]*Sample),
		globalVolume: defaultGlobalVolume,
	}
}

// Put inserts (or overwrites) a sample at its own (MIDINote, Velocity)
// key.
func (b *Builder) Put(s *Sample) {
	b.samples[Key{s.MIDINote, s.Velocity}] = s
}

// ScaleGlobalVolume multiplies the builder's running global volume by
// the given linear factor (spec §4.6, "%%volume=<db>" applies
// 10^(db/20)).
func (b *Builder) ScaleGlobalVolume(linearFactor float64) {
	b.globalVolume *= linearFactor
}

// SetGlobalTranspose sets the builder's transpose (spec §4.6,
// "%%transpose=<n>").
func (b *Builder) SetGlobalTranspose(semitones int) {
	b.globalTranspose = semitones
}

// Len reports how many samples have been inserted so far.
func (b *Builder) Len() int {
	return len(b.samples)
}

// Build finalizes the builder into an immutable Store.
func (b *Builder) Build() *Store {
	return &Store{
		samples:         b.samples,
		GlobalVolume:    b.globalVolume,
		GlobalTranspose: b.globalTranspose,
	}
}

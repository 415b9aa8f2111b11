package transport

import (
	"strings"
	"testing"

	"github.com/samplerbox/engine/pkg/midi"
)

func TestParseLineRoundTrip(t *testing.T) {
	msg := midi.Message{0x90, 60, 100}
	line := FormatLine(msg)
	got, ok := ParseLine(line)
	if !ok {
		t.Fatalf("ParseLine(%q) failed to parse its own FormatLine output", line)
	}
	if got != msg {
		t.Fatalf("round-tripped message = %v, want %v", got, msg)
	}
}

func TestParseLineRejectsWrongPrefix(t *testing.T) {
	if _, ok := ParseLine("NOT-MIDI:1,2,3\r\n"); ok {
		t.Fatal("expected a non-@MIDI: line to be rejected")
	}
}

func TestParseLineRejectsWrongFieldCount(t *testing.T) {
	if _, ok := ParseLine("@MIDI:1,2\r\n"); ok {
		t.Fatal("expected a line with too few fields to be rejected")
	}
}

func TestParseLineRejectsOutOfRangeByte(t *testing.T) {
	if _, ok := ParseLine("@MIDI:1,2,300\r\n"); ok {
		t.Fatal("expected a byte value above 255 to be rejected")
	}
}

func TestLineScannerDispatchesEachWellFormedLine(t *testing.T) {
	input := "@MIDI:144,60,100\r\nNOT-MIDI\r\n@MIDI:128,60,0\r\n"
	var got []midi.Message
	s := NewLineScanner(strings.NewReader(input), func(m midi.Message) {
		got = append(got, m)
	})
	if err := s.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("dispatched %d messages, want 2 (malformed line must be skipped)", len(got))
	}
	if got[0] != (midi.Message{144, 60, 100}) {
		t.Fatalf("first message = %v, want {144,60,100}", got[0])
	}
	if got[1] != (midi.Message{128, 60, 0}) {
		t.Fatalf("second message = %v, want {128,60,0}", got[1])
	}
}

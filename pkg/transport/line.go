// Package transport implements the console / USB-CDC line-oriented
// MIDI adapter wire format described at the core's boundary (spec §6,
// "MIDI input"). It is explicitly not part of the core (spec §1): it
// exists only to turn a byte stream into normalized midi.Message
// values for pkg/midi.Dispatcher to consume.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samplerbox/engine/pkg/midi"
)

// LineScanner reads "@MIDI:<b0>,<b1>,<b2>\r\n" lines from r and
// forwards each as a midi.Message via the handle callback. Malformed
// lines are ignored (they are not part of the MIDI protocol this
// adapter exists to carry).
type LineScanner struct {
	scanner *bufio.Scanner
	handle  func(midi.Message)
}

// NewLineScanner creates a LineScanner over r.
func NewLineScanner(r io.Reader, handle func(midi.Message)) *LineScanner {
	return &LineScanner{scanner: bufio.NewScanner(r), handle: handle}
}

// Run reads lines until r is exhausted or returns an error, dispatching
// every well-formed "@MIDI:..." line as it arrives. It blocks the
// calling goroutine, matching how a dedicated MIDI reader thread would
// run in the concurrency model of spec §5.
func (s *LineScanner) Run() error {
	for s.scanner.Scan() {
		msg, ok := ParseLine(s.scanner.Text())
		if !ok {
			continue
		}
		s.handle(msg)
	}
	return s.scanner.Err()
}

// ParseLine parses one "@MIDI:<b0>,<b1>,<b2>" line into a midi.Message.
func ParseLine(line string) (midi.Message, bool) {
	line = strings.TrimRight(line, "\r\n")
	const prefix = "@MIDI:"
	if !strings.HasPrefix(line, prefix) {
		return midi.Message{}, false
	}
	fields := strings.Split(strings.TrimPrefix(line, prefix), ",")
	if len(fields) != 3 {
		return midi.Message{}, false
	}

	var msg midi.Message
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || v < 0 || v > 255 {
			return midi.Message{}, false
		}
		msg[i] = byte(v)
	}
	return msg, true
}

// FormatLine renders a midi.Message back into the wire format, mostly
// useful for tests and for adapters that need to emit the protocol
// rather than parse it.
func FormatLine(msg midi.Message) string {
	return fmt.Sprintf("@MIDI:%d,%d,%d\r\n", msg[0], msg[1], msg[2])
}

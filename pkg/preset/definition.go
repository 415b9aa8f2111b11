package preset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// notes maps lowercase note names (without octave) to their semitone
// index within an octave (spec §4.6, "NOTES" table).
var notes = []string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// rule is one compiled line of a definition.txt file: a filename
// pattern with named capture groups plus the per-rule default values
// used when a token is absent from the pattern (spec §4.6).
type rule struct {
	pattern  *regexp.Regexp
	defaults map[string]string
}

// compileRule turns one definition.txt line (already known not to be a
// %%volume/%%transpose directive) into a rule. The token substitution
// mirrors the original Python's re.escape + replace exactly: escape
// the literal pattern first, then swap the escaped token spellings for
// named capture groups, so that characters like "." in a real filename
// are matched literally.
func compileRule(line string) (*rule, error) {
	parts := strings.SplitN(line, ",", 2)
	rawPattern := strings.TrimSpace(parts[0])
	if rawPattern == "" {
		return nil, fmt.Errorf("empty filename pattern")
	}

	defaults := map[string]string{"midinote": "0", "velocity": "127", "notename": ""}
	if len(parts) > 1 {
		for _, kv := range strings.Split(parts[1], ",") {
			kv = strings.ReplaceAll(strings.TrimSpace(kv), "%", "")
			pair := strings.SplitN(kv, "=", 2)
			if len(pair) != 2 {
				continue
			}
			key := strings.TrimSpace(pair[0])
			val := strings.TrimSpace(pair[1])
			if _, known := defaults[key]; known {
				defaults[key] = val
			}
		}
	}

	escaped := regexp.QuoteMeta(rawPattern)
	escaped = strings.ReplaceAll(escaped, "%midinote", `(?P<midinote>\d+)`)
	escaped = strings.ReplaceAll(escaped, "%velocity", `(?P<velocity>\d+)`)
	escaped = strings.ReplaceAll(escaped, "%notename", `(?P<notename>[A-Ga-g]#?[0-9])`)
	escaped = strings.ReplaceAll(escaped, `\*`, `.*?`) // non-greedy any-run

	re, err := regexp.Compile("^" + escaped)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", rawPattern, err)
	}
	return &rule{pattern: re, defaults: defaults}, nil
}

// match reports whether fname matches the rule and, if so, returns the
// resolved (midinote, velocity) honoring captured groups, per-rule
// defaults, and %notename resolution (spec §4.6, example E5).
func (r *rule) match(fname string) (midinote, velocity int, ok bool) {
	m := r.pattern.FindStringSubmatch(fname)
	if m == nil {
		return 0, 0, false
	}

	captured := map[string]string{}
	for i, name := range r.pattern.SubexpNames() {
		if name != "" && i < len(m) && m[i] != "" {
			captured[name] = m[i]
		}
	}

	midinoteStr := firstNonEmpty(captured["midinote"], r.defaults["midinote"])
	velocityStr := firstNonEmpty(captured["velocity"], r.defaults["velocity"])
	notenameStr := firstNonEmpty(captured["notename"], r.defaults["notename"])

	midinote, err := strconv.Atoi(midinoteStr)
	if err != nil {
		return 0, 0, false
	}
	velocity, err = strconv.Atoi(velocityStr)
	if err != nil {
		return 0, 0, false
	}

	if notenameStr != "" {
		n, err := noteNameToMIDI(notenameStr)
		if err != nil {
			return 0, 0, false
		}
		midinote = n
	}

	return midinote, velocity, true
}

// noteNameToMIDI resolves a "%notename" capture (e.g. "a#3") to a MIDI
// note number: NOTE_INDEX(name) + (octave+2)*12 (spec §4.6).
func noteNameToMIDI(s string) (int, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("malformed note name %q", s)
	}
	octaveDigit := s[len(s)-1:]
	octave, err := strconv.Atoi(octaveDigit)
	if err != nil {
		return 0, fmt.Errorf("malformed note name %q: %w", s, err)
	}
	name := strings.ToLower(s[:len(s)-1])
	idx := -1
	for i, n := range notes {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	return idx + (octave+2)*12, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

package sonny

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// findNote returns the note of tl sounding at time t, with tl starting at
// offset. The note's period is returned shifted to absolute time.
func (r *Registry) findNote(tl *Timeline, t, offset float64) (Note, bool, error) {
	if !tl.Period.shift(offset).Contains(t) {
		return Note{}, not, nil
	}
	var rel float64 // start of the current entry, relative to offset
	for _, e := range tl.Entries {
		if e.IsID {
			c, ok := r.chains[e.ID]
			if !ok || !c.IsNotes() {
				return Note{}, not, newError(ErrTimeline, "%s is not a note chain", e.ID.Describe())
			}
			// the same sums the nested call makes, so both agree on the edges
			if c.Timeline.Period.shift(offset + rel).Contains(t) {
				n, found, err := r.findNote(c.Timeline, t, offset+rel)
				if err != nil || found {
					return n, found, err
				}
			}
			rel += c.Timeline.Period.Duration()
			continue
		}
		for _, n := range e.Notes {
			if p := n.Period.shift(offset); p.Contains(t) {
				return Note{Pitches: n.Pitches, Period: p}, yes, nil
			}
		}
		if k := len(e.Notes); k > 0 {
			rel = e.Notes[k-1].Period.End
		}
	}
	return Note{}, not, newError(ErrTimeline, "no note at %gs inside %gs to %gs", t, tl.Period.Start+offset, tl.Period.End+offset)
}

// FindNote returns the note of the named note chain sounding at time t.
func (r *Registry) FindNote(name ChainName, t float64) (Note, bool, error) {
	c, ok := r.chains[name]
	if !ok {
		return Note{}, not, newError(ErrChainNotFound, "%s", name.Describe())
	}
	if !c.IsNotes() {
		return Note{}, not, newError(ErrTimeline, "%s is not a note chain", name.Describe())
	}
	return r.findNote(c.Timeline, t, 0)
}

// C0, and the ratio between semitones
const (
	c0       = 16.3516
	semitone = 1.059463094359
)

var letters = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// ParsePitch converts a pitch name such as "A4", "C#3" or "Eb" into Hz.
// The octave defaults to 3. Plain numbers are taken as Hz.
func ParsePitch(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if hz, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(hz) || math.IsInf(hz, 0) {
			return 0, errors.Errorf("pitch %q is not finite", s)
		}
		return hz, nil
	}
	if s == "" {
		return 0, errors.New("empty pitch")
	}
	n, ok := letters[strings.ToLower(s)[0]]
	if !ok {
		return 0, errors.Errorf("pitch %q: unknown note name", s)
	}
	i := 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '#':
			n++
			continue
		case 'b':
			n--
			continue
		}
		break
	}
	octave := 3
	if i < len(s) {
		o, err := strconv.Atoi(s[i:])
		if err != nil {
			return 0, errors.Errorf("pitch %q: bad octave %q", s, s[i:])
		}
		octave = o
	}
	return c0 * math.Pow(semitone, float64(n+12*octave)), nil
}

// ParseChord parses pitches joined with '+', eg. "C4+E4+G4". "_" is a rest.
func ParseChord(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "_" {
		return nil, nil
	}
	parts := strings.Split(s, "+")
	pitches := make([]float64, len(parts))
	for i, p := range parts {
		hz, err := ParsePitch(p)
		if err != nil {
			return nil, err
		}
		pitches[i] = hz
	}
	return pitches, nil
}

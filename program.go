package sonny

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// A program is a YAML description of already parsed chains:
//
//	tempo: 120        # beats per minute, for note durations
//	end: 4            # seconds, optional
//	use: [lib::*]
//	chains:
//	  - name: osc
//	    links:
//	      - {op: mul, args: [time, 6.2832]}
//	      - {op: mul, args: ["!1", "!2"]}
//	      - {op: sin, args: ["!1"]}
//	  - name: out
//	    play: true
//	    links:
//	      - notes: [C4:1, D4+F4:1/2, _:1/2]
//	      - osc
//
// A link is a number, a variable (time, sample_rate, window_size,
// buffer_size, window_index), a backlink (!n), a chain name, a list of
// expressions forming an array, or a mapping holding one of op/args,
// prop/of, notes, array or chain (an inline chain, anonymous unless named).

type programFile struct {
	Tempo  float64     `yaml:"tempo"`
	End    float64     `yaml:"end"`
	Use    []string    `yaml:"use"`
	Chains []yaml.Node `yaml:"chains"`
}

type chainFile struct {
	Name   string      `yaml:"name"`
	Play   bool        `yaml:"play"`
	Use    []string    `yaml:"use"`
	Chains []yaml.Node `yaml:"chains"`
	Links  []yaml.Node `yaml:"links"`
}

type operandFile struct {
	Op    string      `yaml:"op"`
	Args  []yaml.Node `yaml:"args"`
	Prop  string      `yaml:"prop"`
	Of    string      `yaml:"of"`
	Notes []string    `yaml:"notes"`
	Array []yaml.Node `yaml:"array"`
	Chain *yaml.Node  `yaml:"chain"`
}

var variables = map[string]Operand{
	"time":         Time,
	"sample_rate":  SampleRate,
	"window_size":  WindowSize,
	"buffer_size":  BufferSize,
	"window_index": WindowIndex,
}

type loader struct {
	b    *Builder
	file string
}

// LoadProgram reads a program and builds its Registry.
func LoadProgram(r io.Reader, file string) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	return ParseProgram(data, file)
}

func ParseProgram(data []byte, file string) (*Registry, error) {
	var pf programFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	b := NewBuilder()
	if pf.Tempo > 0 {
		b.Tempo = pf.Tempo
	}
	if math.IsNaN(pf.End) || math.IsInf(pf.End, 0) || pf.End < 0 {
		return nil, errors.Errorf("%s: end %g is not a time", file, pf.End)
	}
	b.End = pf.End
	l := &loader{b: b, file: file}
	l.use(pf.Use)
	for i := range pf.Chains {
		if _, err := l.chain(&pf.Chains[i]); err != nil {
			return nil, err
		}
	}
	return b.Registry()
}

func (l *loader) loc(n *yaml.Node) Location {
	return Location{File: l.file, Line: n.Line, Column: n.Column}
}

func (l *loader) errorf(n *yaml.Node, format string, a ...interface{}) error {
	return errors.Errorf("%s: %s", l.loc(n), sf(format, a...))
}

// use takes "path::*" to bring the names inside path into scope.
func (l *loader) use(paths []string) {
	for _, p := range paths {
		if path, ok := strings.CutSuffix(p, "::*"); ok {
			l.b.Use(path, yes)
		} else {
			l.b.Use(p, not)
		}
	}
}

func (l *loader) chain(n *yaml.Node) (ChainName, error) {
	var cf chainFile
	if err := n.Decode(&cf); err != nil {
		return ChainName{}, l.errorf(n, "%v", err)
	}
	l.b.At(l.loc(n))
	name, err := l.b.Begin(cf.Name)
	if err != nil {
		return name, err
	}
	if cf.Play {
		if err := l.b.Play(); err != nil {
			return name, err
		}
	}
	l.use(cf.Use)
	for i := range cf.Chains {
		if _, err := l.chain(&cf.Chains[i]); err != nil {
			return name, err
		}
	}
	for i := range cf.Links {
		e, err := l.expression(&cf.Links[i])
		if err != nil {
			return name, err
		}
		l.b.At(e.Location)
		if err := l.b.Append(e); err != nil {
			return name, err
		}
	}
	if _, err := l.b.Finalize(); err != nil {
		return name, err
	}
	return name, nil
}

func (l *loader) expression(n *yaml.Node) (*Expression, error) {
	if n.Kind == yaml.MappingNode {
		var of operandFile
		if err := n.Decode(&of); err != nil {
			return nil, l.errorf(n, "%v", err)
		}
		if of.Op != "" {
			op, ok := ParseOp(of.Op)
			if !ok {
				return nil, l.errorf(n, "unknown operation %q", of.Op)
			}
			if len(of.Args) != op.Arity() {
				return nil, l.errorf(n, "%s takes %d operands, given %d", op, op.Arity(), len(of.Args))
			}
			e := &Expression{Op: op, Operands: make([]Operand, len(of.Args)), Location: l.loc(n)}
			for i := range of.Args {
				o, err := l.operand(&of.Args[i])
				if err != nil {
					return nil, err
				}
				e.Operands[i] = o
			}
			return e, nil
		}
	}
	o, err := l.operand(n)
	if err != nil {
		return nil, err
	}
	e := Link(o)
	e.Location = l.loc(n)
	return e, nil
}

func (l *loader) operand(n *yaml.Node) (Operand, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return l.operand(n.Alias)
	case yaml.ScalarNode:
		return l.scalar(n)
	case yaml.SequenceNode:
		return l.array(n.Content)
	case yaml.MappingNode:
		var of operandFile
		if err := n.Decode(&of); err != nil {
			return Operand{}, l.errorf(n, "%v", err)
		}
		switch {
		case of.Op != "":
			e, err := l.expression(n)
			if err != nil {
				return Operand{}, err
			}
			return Nested(e), nil
		case of.Prop != "":
			p, ok := ParseProperty(of.Prop)
			if !ok {
				return Operand{}, l.errorf(n, "unknown property %q", of.Prop)
			}
			return Prop(Scoped(of.Of), p), nil
		case of.Notes != nil:
			notes, err := l.notes(n, of.Notes)
			if err != nil {
				return Operand{}, err
			}
			return NotesOperand(notes...), nil
		case of.Array != nil:
			items := make([]*yaml.Node, len(of.Array))
			for i := range of.Array {
				items[i] = &of.Array[i]
			}
			return l.array(items)
		case of.Chain != nil:
			name, err := l.chain(of.Chain)
			if err != nil {
				return Operand{}, err
			}
			return ID(name), nil
		}
	}
	return Operand{}, l.errorf(n, "cannot make an operand of this")
}

func (l *loader) scalar(n *yaml.Node) (Operand, error) {
	// an unquoted !2 is a YAML tag
	if strings.HasPrefix(n.Tag, "!") && !strings.HasPrefix(n.Tag, "!!") {
		return l.backlink(n, n.Tag)
	}
	switch n.Tag {
	case "!!int", "!!float":
		var x float64
		if err := n.Decode(&x); err != nil {
			return Operand{}, l.errorf(n, "%v", err)
		}
		return Num(x), nil
	}
	s := strings.TrimSpace(n.Value)
	if v, ok := variables[s]; ok {
		return v, nil
	}
	if strings.HasPrefix(s, "!") {
		return l.backlink(n, s)
	}
	if s == "" {
		return Operand{}, l.errorf(n, "empty operand")
	}
	return ID(Scoped(s)), nil
}

func (l *loader) backlink(n *yaml.Node, s string) (Operand, error) {
	k, err := strconv.Atoi(s[1:])
	if err != nil {
		return Operand{}, l.errorf(n, "bad backlink %q", s)
	}
	return BackLink(k), nil
}

func (l *loader) array(nodes []*yaml.Node) (Operand, error) {
	items := make([]*Expression, len(nodes))
	for i, c := range nodes {
		e, err := l.expression(c)
		if err != nil {
			return Operand{}, err
		}
		items[i] = e
	}
	return ArrayOperand(items...), nil
}

// notes parses "pitch:beats" entries and lays them end to end from 0.
func (l *loader) notes(n *yaml.Node, entries []string) ([]Note, error) {
	notes := make([]Note, len(entries))
	var t float64
	for i, s := range entries {
		pitch, beats, _ := strings.Cut(s, ":")
		pitches, err := ParseChord(pitch)
		if err != nil {
			return nil, l.errorf(n, "%v", err)
		}
		d := 1.0
		if beats != "" {
			if d, err = parseBeats(beats); err != nil {
				return nil, l.errorf(n, "note %q: %v", s, err)
			}
		}
		d *= 60 / l.b.Tempo
		notes[i] = Note{Pitches: pitches, Period: Period{t, t + d}}
		t += d
	}
	return notes, nil
}

// parseBeats reads a number of beats, "3" or "1/4".
func parseBeats(s string) (float64, error) {
	num, den, frac := strings.Cut(s, "/")
	x, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, errors.Errorf("bad duration %q", s)
	}
	if frac {
		y, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || y == 0 {
			return 0, errors.Errorf("bad duration %q", s)
		}
		x /= y
	}
	if !(x > 0) {
		return 0, errors.Errorf("duration %q is not positive", s)
	}
	if math.IsInf(x, 0) {
		return 0, errors.Errorf("duration %q is not finite", s)
	}
	return x, nil
}

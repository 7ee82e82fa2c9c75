package sonny

import (
	"fmt"
	"io"
	"strings"
)

// terminal colours
const (
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
	italic  = "\x1b[3m"
	green   = "\x1b[32m"
	yellow  = "\x1b[33m"
	magenta = "\x1b[35m"
	cyan    = "\x1b[36m"
)

type palette struct {
	reset, bold, italic, green, yellow, magenta, cyan string
}

var colours = palette{reset, bold, italic, green, yellow, magenta, cyan}

// List writes every chain of r in the order they were finalized, one link
// per line. Colour codes are left out when colour is false.
func (r *Registry) List(w io.Writer, colour bool) error {
	p := palette{}
	if colour {
		p = colours
	}
	var b strings.Builder
	for _, c := range r.Chains() {
		fmt.Fprintf(&b, "%s%s%s", p.bold, c.Name, p.reset)
		if c.Play {
			fmt.Fprintf(&b, " %s↪ play%s", p.green, p.reset)
		}
		if c.IsNotes() {
			fmt.Fprintf(&b, " %s[%gs]%s\n\t", p.italic, c.Timeline.Period.Duration(), p.reset)
			for i, e := range c.Timeline.Entries {
				if i > 0 {
					fmt.Fprintf(&b, "%s,%s ", p.italic, p.reset)
				}
				if e.IsID {
					fmt.Fprintf(&b, "%s%s%s", p.yellow, e.ID, p.reset)
					continue
				}
				b.WriteString(p.notes(e.Notes))
			}
			b.WriteString("\n\n")
			continue
		}
		for i, e := range c.Links {
			fmt.Fprintf(&b, "\n%s%d:%s\t%s", p.italic, i, p.reset, p.expression(e))
		}
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (p palette) expression(e *Expression) string {
	if e.Op == OpValue {
		return p.operand(e.Operands[0])
	}
	s := make([]string, 0, len(e.Operands)+1)
	s = append(s, p.magenta+e.Op.String()+p.reset)
	for _, o := range e.Operands {
		s = append(s, p.operand(o))
	}
	return strings.Join(s, " ")
}

func (p palette) operand(o Operand) string {
	switch o.Kind {
	case KindVar:
		return p.cyan + o.Value.String() + p.reset
	case KindID:
		return p.yellow + o.Chain.String() + p.reset
	case KindProperty:
		return sf("%s%s.%s%s", p.yellow, o.Chain, o.Property, p.reset)
	case KindBackLink:
		return sf("%s!%d%s", p.cyan, o.Back, p.reset)
	case KindTime:
		return p.cyan + "time" + p.reset
	case KindSampleRate:
		return p.cyan + "sample_rate" + p.reset
	case KindWindowSize:
		return p.cyan + "window_size" + p.reset
	case KindBufferSize:
		return p.cyan + "buffer_size" + p.reset
	case KindWindowIndex:
		return p.cyan + "window_index" + p.reset
	case KindNotes:
		return p.notes(o.Notes)
	case KindExpression:
		return "(" + p.expression(o.Expr) + ")"
	case KindArray:
		s := make([]string, len(o.Items))
		for i, e := range o.Items {
			s[i] = p.expression(e)
		}
		return "[" + strings.Join(s, ", ") + "]"
	}
	return "?"
}

func (p palette) notes(notes []Note) string {
	s := make([]string, len(notes))
	for i, n := range notes {
		pitches := "_"
		if len(n.Pitches) > 0 {
			ps := make([]string, len(n.Pitches))
			for j, hz := range n.Pitches {
				ps[j] = sf("%.2f", hz)
			}
			pitches = strings.Join(ps, "+")
		}
		s[i] = sf("%s%s%s:%g", p.cyan, pitches, p.reset, n.Period.Duration())
	}
	return "{" + strings.Join(s, " ") + "}"
}

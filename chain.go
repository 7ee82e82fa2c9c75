/*
	Sonny evaluates chains of numeric expressions and note sequences, sample by
	sample, into a PCM signal.

	A chain is a pipeline of links. Each link may refer back to the result of an
	earlier link with a backlink (!1 is the previous link); once the chain's own
	history runs out, backlinks reach into the arguments passed by the calling
	chain, which lets any chain act as a function. Chains made only of notes, or
	of references to other note chains, are flattened into a timeline.
*/

package sonny

import (
	"fmt"
	"strings"
)

const ( // aliases
	yes = true
	not = false
)

var sf = fmt.Sprintf

// ChainName identifies a chain: a "::" joined path, or an anonymous number.
type ChainName struct {
	Path      string
	ID        int
	anonymous bool
}

func Scoped(path string) ChainName { return ChainName{Path: path} }
func Anonymous(id int) ChainName   { return ChainName{ID: id, anonymous: yes} }

func (n ChainName) IsAnonymous() bool { return n.anonymous }

// String is used for file names.
func (n ChainName) String() string {
	if n.anonymous {
		return sf("anon%04d", n.ID)
	}
	return n.Path
}

// Describe is used in messages.
func (n ChainName) Describe() string {
	if n.anonymous {
		return sf("anonymous chain #%d", n.ID)
	}
	return sf("chain '%s'", n.Path)
}

// last segment of a scoped path
func (n ChainName) local() string {
	i := strings.LastIndex(n.Path, "::")
	if i < 0 {
		return n.Path
	}
	return n.Path[i+2:]
}

// Period is the half open interval [Start, End) in seconds.
type Period struct {
	Start, End float64
}

func (p Period) Duration() float64 { return p.End - p.Start }

func (p Period) Contains(t float64) bool { return p.Start <= t && t < p.End }

func (p Period) shift(by float64) Period { return Period{p.Start + by, p.End + by} }

// Note is one or more simultaneous pitches (Hz) held for a period.
type Note struct {
	Pitches []float64
	Period  Period
}

// Value gives the pitch as a number, or an array for a chord.
func (n Note) Value() Value {
	switch len(n.Pitches) {
	case 0:
		return zero
	case 1:
		return Number(n.Pitches[0])
	}
	return Numbers(n.Pitches...)
}

// NotesOrID is one entry of a timeline: inline notes, or a reference to
// another note chain.
type NotesOrID struct {
	Notes []Note
	ID    ChainName
	IsID  bool
}

// Timeline is the flattened form of a chain holding only notes.
type Timeline struct {
	Entries []NotesOrID
	Period  Period
}

// Chain is a finalized chain. Exactly one of Links and Timeline is used:
// Timeline is set when every link was notes or a note chain reference.
type Chain struct {
	Name     ChainName
	Links    []*Expression
	Timeline *Timeline
	Play     bool
	Location Location
}

func (c *Chain) IsNotes() bool { return c.Timeline != nil }

// Property of the note active in a note chain.
type Property uint8

const (
	PropStart Property = iota
	PropEnd
	PropDuration
	PropAll
)

var propertyNames = [...]string{"start", "end", "duration", "all"}

func (p Property) String() string { return propertyNames[p] }

// ParseProperty accepts start, end, duration (or length) and all.
func ParseProperty(s string) (Property, bool) {
	switch s {
	case "length":
		return PropDuration, yes
	}
	for i, n := range propertyNames {
		if n == s {
			return Property(i), yes
		}
	}
	return 0, not
}

type OperandKind uint8

const (
	KindVar OperandKind = iota
	KindID
	KindProperty
	KindBackLink
	KindTime
	KindSampleRate
	KindWindowSize
	KindBufferSize
	KindWindowIndex
	KindNotes
	KindExpression
	KindArray
)

// Operand is a leaf or sub-expression of an Expression. Kind selects which
// of the other fields is meaningful.
type Operand struct {
	Kind     OperandKind
	Value    Value         // KindVar
	Chain    ChainName     // KindID, KindProperty
	Property Property      // KindProperty
	Back     int           // KindBackLink
	Notes    []Note        // KindNotes
	Expr     *Expression   // KindExpression
	Items    []*Expression // KindArray
}

func Var(v Value) Operand                       { return Operand{Kind: KindVar, Value: v} }
func Num(x float64) Operand                     { return Var(Number(x)) }
func ID(name ChainName) Operand                 { return Operand{Kind: KindID, Chain: name} }
func Prop(name ChainName, p Property) Operand   { return Operand{Kind: KindProperty, Chain: name, Property: p} }
func BackLink(n int) Operand                    { return Operand{Kind: KindBackLink, Back: n} }
func NotesOperand(notes ...Note) Operand        { return Operand{Kind: KindNotes, Notes: notes} }
func Nested(e *Expression) Operand              { return Operand{Kind: KindExpression, Expr: e} }
func ArrayOperand(items ...*Expression) Operand { return Operand{Kind: KindArray, Items: items} }

var (
	Time        = Operand{Kind: KindTime}
	SampleRate  = Operand{Kind: KindSampleRate}
	WindowSize  = Operand{Kind: KindWindowSize}
	BufferSize  = Operand{Kind: KindBufferSize}
	WindowIndex = Operand{Kind: KindWindowIndex}
)

// Expression applies one operation to one, two or three operands.
type Expression struct {
	Op       Op
	Operands []Operand
	Location Location
}

// E builds an expression. It panics when the operand count does not match
// the operation.
func E(op Op, operands ...Operand) *Expression {
	if want := operators[op].arity; len(operands) != want {
		panic(sf("%s takes %d operands, given %d", op, want, len(operands)))
	}
	return &Expression{Op: op, Operands: operands}
}

// Link is shorthand for a link holding a single operand.
func Link(o Operand) *Expression { return E(OpValue, o) }

// walk visits every operand of e, depth first.
func (e *Expression) walk(visit func(o *Operand)) {
	for i := range e.Operands {
		o := &e.Operands[i]
		visit(o)
		switch o.Kind {
		case KindExpression:
			o.Expr.walk(visit)
		case KindArray:
			for _, x := range o.Items {
				x.walk(visit)
			}
		}
	}
}

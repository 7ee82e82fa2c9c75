package sonny

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors, one per failure kind. Match with errors.Is.
var (
	ErrChainNotFound          = errors.New("chain not found in scope")
	ErrPropertyOfGenericChain = errors.New("property of generic chain")
	ErrNamedChainInAnonChain  = errors.New("named chain in anonymous chain")
	ErrChainRedeclaration     = errors.New("chain redeclaration")
	ErrZeroBackLink           = errors.New("backlinks must be greater than 0")
	ErrBackLinkOutOfRange     = errors.New("backlink out of range")
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrShape                  = errors.New("operand has the wrong shape")
	ErrRecursion              = errors.New("recursive chain invocation")
	ErrNoOutputChain          = errors.New("no output chain")
	ErrMultipleOutputChains   = errors.New("more than one output chain")
	ErrNoOpenChain            = errors.New("no chain under construction")
	ErrUnclosedChain          = errors.New("chain never finalized")
	ErrTimeline               = errors.New("note timeline inconsistent")
	ErrTooLong                = errors.New("render longer than allowed")
)

// Location is a position in the source that produced a chain.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) IsZero() bool { return l == Location{} }

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error describes a build or evaluation failure. Kind is one of the
// sentinels above.
type Error struct {
	Kind      error
	Chain     ChainName
	Link      int // -1 when not tied to a link
	Location  Location
	Expected  int // backlink faults only
	Available int
	Msg       string
	hasChain  bool
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if !e.Location.IsZero() {
		b.WriteString(" at ")
		b.WriteString(e.Location.String())
	}
	if e.hasChain {
		b.WriteString(" in ")
		b.WriteString(e.Chain.Describe())
		if e.Link >= 0 {
			fmt.Fprintf(&b, ", link %d", e.Link)
		}
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Kind == ErrBackLinkOutOfRange {
		fmt.Fprintf(&b, " (expected %d arguments, %d available)", e.Expected, e.Available)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Link: -1, Msg: fmt.Sprintf(format, a...)}
}

// in attaches the chain and link being evaluated, unless a deeper frame
// already did.
func (e *Error) in(name ChainName, link int) *Error {
	if !e.hasChain {
		e.Chain, e.Link, e.hasChain = name, link, yes
	}
	return e
}

func (e *Error) at(loc Location) *Error {
	if e.Location.IsZero() {
		e.Location = loc
	}
	return e
}

func indexError(format string, a ...interface{}) *Error {
	return newError(ErrIndexOutOfRange, format, a...)
}

// locate adds chain, link and location to err when it is an *Error.
func locate(err error, name ChainName, link int, loc Location) error {
	var e *Error
	if errors.As(err, &e) {
		e.in(name, link).at(loc)
		return e
	}
	return err
}

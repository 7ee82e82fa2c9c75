package sonny

import (
	"errors"
	"testing"
)

// define builds a chain from links, marking it to play when play is set.
func define(t *testing.T, b *Builder, name string, play bool, links ...*Expression) ChainName {
	t.Helper()
	n, err := b.Begin(name)
	if err != nil {
		t.Fatalf("Begin(%q) => %v", name, err)
	}
	if play {
		if err := b.Play(); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range links {
		if err := b.Append(e); err != nil {
			t.Fatalf("Append to %s => %v", n.Describe(), err)
		}
	}
	if _, err := b.Finalize(); err != nil {
		t.Fatal(err)
	}
	return n
}

// seq lays notes out end to end from 0, given pairs of Hz and seconds.
func seq(pairs ...float64) []Note {
	var notes []Note
	var t float64
	for i := 0; i+1 < len(pairs); i += 2 {
		notes = append(notes, Note{Pitches: []float64{pairs[i]}, Period: Period{t, t + pairs[i+1]}})
		t += pairs[i+1]
	}
	return notes
}

func TestBeginPaths(t *testing.T) {
	b := NewBuilder()
	outer, _ := b.Begin("lib")
	inner, err := b.Begin("osc")
	if err != nil {
		t.Fatal(err)
	}
	if inner.Path != "lib::osc" {
		t.Errorf("Begin(%q) in %s => %q, expected %q", "osc", outer, inner.Path, "lib::osc")
	}
	b.Finalize()
	b.Finalize()
	if _, ok := b.Resolve(Scoped("lib::osc")); !ok {
		t.Errorf("Resolve(%q) failed", "lib::osc")
	}
	if _, ok := b.Resolve(Scoped("osc")); ok {
		t.Errorf("Resolve(%q) found a chain outside its scope", "osc")
	}
}

func TestBeginErrors(t *testing.T) {
	b := NewBuilder()
	b.Begin("")
	if _, err := b.Begin("named"); !errors.Is(err, ErrNamedChainInAnonChain) {
		t.Errorf("named chain in anonymous chain => %v, expected %v", err, ErrNamedChainInAnonChain)
	}
	b.Finalize()
	if _, err := b.Begin("named"); err != nil {
		t.Errorf("named chain after anonymous chain closed => %v", err)
	}
	b.Finalize()
	if _, err := b.Begin("named"); !errors.Is(err, ErrChainRedeclaration) {
		t.Errorf("redeclaration => %v, expected %v", err, ErrChainRedeclaration)
	}
}

func TestAppendErrors(t *testing.T) {
	b := NewBuilder()
	if err := b.Append(Link(Num(1))); !errors.Is(err, ErrNoOpenChain) {
		t.Errorf("Append with no open chain => %v, expected %v", err, ErrNoOpenChain)
	}
	if err := b.Play(); !errors.Is(err, ErrNoOpenChain) {
		t.Errorf("Play with no open chain => %v, expected %v", err, ErrNoOpenChain)
	}
	if _, err := b.Finalize(); !errors.Is(err, ErrNoOpenChain) {
		t.Errorf("Finalize with no open chain => %v, expected %v", err, ErrNoOpenChain)
	}
	b.Begin("a")
	b.At(Location{File: "a.yaml", Line: 3, Column: 5})
	err := b.Append(E(OpAdd, Num(1), BackLink(0)))
	if !errors.Is(err, ErrZeroBackLink) {
		t.Fatalf("Append(!0) => %v, expected %v", err, ErrZeroBackLink)
	}
	var e *Error
	if !errors.As(err, &e) || e.Location.Line != 3 || e.Chain != Scoped("a") || e.Link != 0 {
		t.Errorf("Append(!0) => %#v, expected chain 'a' link 0 at line 3", e)
	}
}

func TestFinalizeConversion(t *testing.T) {
	b := NewBuilder()
	tune := define(t, b, "tune", not, Link(NotesOperand(seq(261.63, 1, 293.66, 1)...)))
	more := define(t, b, "more", not, Link(ID(tune)), Link(NotesOperand(seq(440, 0.5)...)))
	gen := define(t, b, "gen", not, Link(ID(tune)), E(OpMul, BackLink(1), Num(2)))
	empty := define(t, b, "empty", not)

	tests := []struct {
		name  ChainName
		notes bool
		end   float64
	}{
		{tune, yes, 2},
		{more, yes, 2.5},
		{gen, not, 0},
		{empty, yes, 0},
	}
	for _, tst := range tests {
		c, ok := b.Resolve(tst.name)
		if !ok {
			t.Fatalf("Resolve(%s) failed", tst.name)
		}
		if c.IsNotes() != tst.notes {
			t.Errorf("%s IsNotes() => %v, expected %v", tst.name, c.IsNotes(), tst.notes)
			continue
		}
		if tst.notes && c.Timeline.Period.End != tst.end {
			t.Errorf("%s end => %g, expected %g", tst.name, c.Timeline.Period.End, tst.end)
		}
	}
	c, _ := b.Resolve(more)
	if p := c.Timeline.Entries[1].Notes[0].Period; p != (Period{2, 2.5}) {
		t.Errorf("inline notes after a reference => %v, expected [2, 2.5)", p)
	}
}

func TestResolveScopes(t *testing.T) {
	b := NewBuilder()
	b.Begin("lib")
	osc := define(t, b, "osc", not, Link(Num(1)))
	// inside lib, its own names are in scope
	if c, ok := b.Resolve(Scoped("osc")); !ok || c.Name != osc {
		t.Errorf("Resolve(osc) inside lib => %v %v, expected %s", c, ok, osc)
	}
	b.Finalize()

	tests := []struct {
		path     string
		contents bool
		ok       bool
	}{
		{"lib", yes, yes},
		{"lib::osc", not, yes},
		{"lib", not, not},
		{"other", yes, not},
	}
	for _, tst := range tests {
		b.Begin("")
		b.Use(tst.path, tst.contents)
		c, ok := b.Resolve(Scoped("osc"))
		if ok != tst.ok || ok && c.Name != osc {
			t.Errorf("use %s (contents %v): Resolve(osc) => %v, expected %v", tst.path, tst.contents, ok, tst.ok)
		}
		b.Finalize()
		if _, ok := b.Resolve(Scoped("osc")); ok {
			t.Errorf("use %s outlived its chain", tst.path)
		}
	}
}

func TestResolveNearest(t *testing.T) {
	b := NewBuilder()
	b.Begin("a")
	define(t, b, "x", not, Link(Num(1)))
	b.Finalize()
	b.Begin("b")
	define(t, b, "x", not, Link(Num(2)))
	b.Finalize()

	b.Begin("")
	b.Use("a", yes)
	b.Use("b", yes)
	if c, ok := b.Resolve(Scoped("x")); !ok || c.Name.Path != "b::x" {
		t.Errorf("Resolve(x) => %v, expected b::x", c)
	}
	if _, ok := b.Resolve(Scoped("a::x")); !ok {
		t.Errorf("Resolve(a::x) by full path failed")
	}
}

func TestForwardReference(t *testing.T) {
	b := NewBuilder()
	define(t, b, "out", yes, Link(ID(Scoped("later"))))
	define(t, b, "later", not, Link(Num(3)))
	r, err := b.Registry()
	if err != nil {
		t.Fatal(err)
	}
	c, _ := r.Lookup(Scoped("out"))
	if got := c.Links[0].Operands[0].Chain; got != Scoped("later") {
		t.Errorf("forward reference => %v, expected later", got)
	}
}

func TestUnresolved(t *testing.T) {
	b := NewBuilder()
	b.At(Location{Line: 7, Column: 2})
	define(t, b, "out", yes, Link(Num(1)), Link(ID(Scoped("missing"))))
	_, err := b.Registry()
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrChainNotFound {
		t.Fatalf("Registry() => %v, expected %v", err, ErrChainNotFound)
	}
	if e.Link != 1 || e.Location.Line != 7 {
		t.Errorf("Registry() => link %d line %d, expected link 1 line 7", e.Link, e.Location.Line)
	}
}

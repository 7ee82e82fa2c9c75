package sonny

import (
	"context"
	"errors"
	"math"
	"testing"
)

func registry(t *testing.T, b *Builder) *Registry {
	t.Helper()
	r, err := b.Registry()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func floats(c Column) []float64 {
	out := make([]float64, len(c))
	for k, v := range c {
		out[k] = v.Float()
	}
	return out
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return not
	}
	for i := range a {
		if a[i] != b[i] {
			return not
		}
	}
	return yes
}

func TestBackLinkLocality(t *testing.T) {
	b := NewBuilder()
	out := define(t, b, "out", yes,
		Link(Num(3)),
		E(OpMul, BackLink(1), Num(2)),
		E(OpAdd, BackLink(1), BackLink(2)),
		E(OpSub, BackLink(1), BackLink(3)),
	)
	ev := NewEvaluator(registry(t, b), 1, 16)
	col, err := ev.EvaluateChain(context.Background(), out, nil, Window{Size: 2, SampleRate: 8})
	if err != nil {
		t.Fatal(err)
	}
	if got := floats(col); !equal(got, []float64{6, 6}) {
		t.Errorf("3, *2, +!2, -!3 => %v, expected [6 6]", got)
	}
}

func TestArgumentFallthrough(t *testing.T) {
	b := NewBuilder()
	c := define(t, b, "c", not, Link(Num(5)), Link(BackLink(2)))
	ev := NewEvaluator(registry(t, b), 1, 16)
	w := Window{Size: 3, SampleRate: 8}

	col, err := ev.EvaluateChain(context.Background(), c, []Column{fill(3, Number(7))}, w)
	if err != nil {
		t.Fatal(err)
	}
	if got := floats(col); !equal(got, []float64{7, 7, 7}) {
		t.Errorf("c(7) => %v, expected [7 7 7]", got)
	}

	_, err = ev.EvaluateChain(context.Background(), c, nil, w)
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrBackLinkOutOfRange {
		t.Fatalf("c() => %v, expected %v", err, ErrBackLinkOutOfRange)
	}
	if e.Expected != 2 || e.Available != 1 || e.Chain != c || e.Link != 1 {
		t.Errorf("c() => %v, expected 2 arguments, 1 available, in link 1", e)
	}
}

func TestInvocationSeesArguments(t *testing.T) {
	b := NewBuilder()
	double := define(t, b, "double", not, E(OpMul, BackLink(1), Num(2)))
	out := define(t, b, "out", yes, Link(Num(21)), Link(ID(double)))
	ev := NewEvaluator(registry(t, b), 1, 16)
	col, err := ev.EvaluateChain(context.Background(), out, nil, Window{Size: 1, SampleRate: 8})
	if err != nil {
		t.Fatal(err)
	}
	if got := col[0].Float(); got != 42 {
		t.Errorf("21 -> double => %g, expected 42", got)
	}
}

func TestVariables(t *testing.T) {
	w := Window{Start: 1, Offset: 4, Size: 4, Buffer: 2, SampleRate: 4}
	tests := []struct {
		o    Operand
		want []float64
	}{
		{Time, []float64{2, 2.25, 2.5, 2.75, 3, 3.25}},
		{SampleRate, []float64{4, 4, 4, 4, 4, 4}},
		{WindowSize, []float64{4, 4, 4, 4, 4, 4}},
		{BufferSize, []float64{2, 2, 2, 2, 2, 2}},
		{WindowIndex, []float64{0, 1, 2, 3, 4, 5}},
	}
	for _, tst := range tests {
		b := NewBuilder()
		out := define(t, b, "out", yes, Link(tst.o))
		ev := NewEvaluator(registry(t, b), 2, 16)
		col, err := ev.EvaluateChain(context.Background(), out, nil, w)
		if err != nil {
			t.Fatal(err)
		}
		if got := floats(col); !equal(got, tst.want) {
			t.Errorf("kind %d => %v, expected %v", tst.o.Kind, got, tst.want)
		}
	}
}

func TestNoteChainValues(t *testing.T) {
	b := NewBuilder()
	tune := define(t, b, "tune", not, Link(NotesOperand(seq(100, 1, 200, 1)...)))
	start := define(t, b, "start", not, Link(Prop(tune, PropStart)))
	all := define(t, b, "all", not, Link(Prop(tune, PropAll)))
	inline := define(t, b, "inline", not, Link(Num(0)), Link(NotesOperand(seq(300, 0.5)...)))
	r := registry(t, b)
	ev := NewEvaluator(r, 1, 16)
	w := Window{Size: 6, SampleRate: 2} // 0, 0.5 .. 2.5

	tests := []struct {
		chain ChainName
		want  []float64
	}{
		{tune, []float64{100, 100, 200, 200, 0, 0}},
		{start, []float64{0, 0, 1, 1, 0, 0}},
		{inline, []float64{300, 0, 0, 0, 0, 0}},
	}
	for _, tst := range tests {
		col, err := ev.EvaluateChain(context.Background(), tst.chain, nil, w)
		if err != nil {
			t.Fatal(err)
		}
		if got := floats(col); !equal(got, tst.want) {
			t.Errorf("%s => %v, expected %v", tst.chain, got, tst.want)
		}
	}

	col, err := ev.EvaluateChain(context.Background(), all, nil, w)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := col[3].String(), "[200, 1, 2, 1]"; got != want {
		t.Errorf("all at 1.5s => %s, expected %s", got, want)
	}
	if got := col[5].String(); got != "0" {
		t.Errorf("all after the notes => %s, expected 0", got)
	}
}

func TestArrayOperand(t *testing.T) {
	b := NewBuilder()
	out := define(t, b, "out", yes,
		Link(ArrayOperand(Link(Num(1)), Link(WindowIndex), E(OpMul, WindowIndex, Num(10)))),
		E(OpIndex, BackLink(1), Num(2)),
	)
	ev := NewEvaluator(registry(t, b), 1, 16)
	col, err := ev.EvaluateChain(context.Background(), out, nil, Window{Size: 3, SampleRate: 8})
	if err != nil {
		t.Fatal(err)
	}
	if got := floats(col); !equal(got, []float64{0, 10, 20}) {
		t.Errorf("[1, k, 10k][2] => %v, expected [0 10 20]", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	b := NewBuilder()
	b.At(Location{File: "t.yaml", Line: 4})
	bad := define(t, b, "bad", not, Link(ArrayOperand(Link(Num(1)))), E(OpIndex, BackLink(1), Num(5)))
	loop := define(t, b, "loop", not, Link(Num(1)), E(OpAdd, BackLink(1), ID(Scoped("loop"))))
	shape := define(t, b, "shape", not, Link(ArrayOperand(Link(Num(1)))), E(OpFFT, BackLink(1)))
	caller := define(t, b, "caller", not, Link(ID(bad)))
	ev := NewEvaluator(registry(t, b), 4, 8)
	w := Window{Size: 100, SampleRate: 100}

	tests := []struct {
		chain ChainName
		err   error
		in    ChainName
		link  int
	}{
		{bad, ErrIndexOutOfRange, bad, 1},
		{caller, ErrIndexOutOfRange, bad, 1},
		{loop, ErrRecursion, loop, 1},
		{shape, ErrShape, shape, 1},
		{Scoped("nowhere"), ErrChainNotFound, ChainName{}, -1},
	}
	for _, tst := range tests {
		_, err := ev.EvaluateChain(context.Background(), tst.chain, nil, w)
		var e *Error
		if !errors.As(err, &e) || !errors.Is(err, tst.err) {
			t.Errorf("%s => %v, expected %v", tst.chain, err, tst.err)
			continue
		}
		if e.Chain != tst.in || e.Link != tst.link {
			t.Errorf("%s => in %s link %d, expected %s link %d", tst.chain, e.Chain, e.Link, tst.in, tst.link)
		}
	}
}

func TestWorkersDeterministic(t *testing.T) {
	b := NewBuilder()
	out := define(t, b, "out", yes,
		E(OpMul, Time, Num(2*math.Pi*440)),
		E(OpSin, BackLink(1)),
		E(OpMul, BackLink(1), Nested(E(OpCos, Time))),
	)
	r := registry(t, b)
	w := Window{Size: 1000, Buffer: 24, Offset: 77, SampleRate: 44100}
	var first []float64
	for _, workers := range []int{1, 3, 8} {
		col, err := NewEvaluator(r, workers, 16).EvaluateChain(context.Background(), out, nil, w)
		if err != nil {
			t.Fatal(err)
		}
		got := floats(col)
		if first == nil {
			first = got
			continue
		}
		if !equal(got, first) {
			t.Errorf("%d workers gave different samples than 1 worker", workers)
		}
	}
}

func TestFFT(t *testing.T) {
	const n = 64
	b := NewBuilder()
	out := define(t, b, "out", yes,
		E(OpMul, Time, Num(2*math.Pi*4)),
		E(OpCos, BackLink(1)),
		E(OpFFT, BackLink(1)),
	)
	ev := NewEvaluator(registry(t, b), 2, 16)
	col, err := ev.EvaluateChain(context.Background(), out, nil, Window{Size: n, SampleRate: n})
	if err != nil {
		t.Fatal(err)
	}
	v := col[0]
	if col[n-1].String() != v.String() {
		t.Errorf("fft result differs across the window")
	}
	freqs, mags := v.Items()[0].Items(), v.Items()[1].Items()
	if len(freqs) != n/2+1 || len(mags) != n/2+1 {
		t.Fatalf("fft => %d bins, expected %d", len(freqs), n/2+1)
	}
	peak := 0
	for k, m := range mags {
		if m.Float() > mags[peak].Float() {
			peak = k
		}
	}
	if peak != 4 || freqs[peak].Float() != 4 || mags[peak].Float() != 1 {
		t.Errorf("fft peak => bin %d at %v Hz magnitude %v, expected bin 4 at 4 Hz magnitude 1", peak, freqs[peak], mags[peak])
	}
}

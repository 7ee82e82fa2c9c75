package sonny

import (
	"bytes"
	"strings"
	"testing"
)

func TestList(t *testing.T) {
	b := NewBuilder()
	tune := define(t, b, "tune", not, Link(NotesOperand(seq(440, 1)...)))
	define(t, b, "out", yes,
		Link(ID(tune)),
		E(OpMul, BackLink(1), Nested(E(OpSin, Time))),
		Link(Prop(tune, PropEnd)),
	)
	var buf bytes.Buffer
	if err := registry(t, b).List(&buf, not); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"tune [1s]\n\t{440.00:1}",
		"out ↪ play",
		"0:\ttune",
		"1:\tmul !1 (sin time)",
		"2:\ttune.end",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("List() => %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("List() without colour wrote escape codes")
	}
}

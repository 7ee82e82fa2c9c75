package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"sonny"
)

func TestReport(t *testing.T) {
	_, err := sonny.ParseProgram([]byte("chains:\n  - name: out\n    play: true\n    links: [1, \"!3\"]\n"), "x.yaml")
	if !errors.Is(err, sonny.ErrBackLinkOutOfRange) {
		t.Fatalf("ParseProgram() => %v, expected %v", err, sonny.ErrBackLinkOutOfRange)
	}
	f, ferr := os.CreateTemp(t.TempDir(), "report")
	if ferr != nil {
		t.Fatal(ferr)
	}
	defer f.Close()
	report(f, err)
	data, ferr := os.ReadFile(f.Name())
	if ferr != nil {
		t.Fatal(ferr)
	}
	out := string(data)
	if n := strings.Count(out, sonny.ErrBackLinkOutOfRange.Error()); n != 1 {
		t.Errorf("kind appears %d times in %q, expected once", n, out)
	}
	for _, want := range []string{"x.yaml:4:", "in chain 'out', link 1", "expected 3 arguments, 1 available"} {
		if !strings.Contains(out, want) {
			t.Errorf("report %q lacks %q", out, want)
		}
	}
}

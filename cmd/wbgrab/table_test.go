package main

import (
	"strings"
	"testing"
)

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"Tool", "State"},
		[][]string{{"ffmpeg", "found"}, {"browser", "missing"}},
	)

	for _, want := range []string{"Tool", "State", "ffmpeg", "found", "browser", "missing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableRightAlignsRequestedColumns(t *testing.T) {
	headers := []string{"Segment", "Attempts"}
	rows := [][]string{{"0", "3"}}

	left := renderTable(headers, rows)
	right := renderTable(headers, rows, 0, 1)

	if left == right {
		t.Fatalf("right-aligned rendering should differ from the default:\n%s", right)
	}
	// The value hugs the right edge of its cell once aligned.
	if !strings.Contains(right, "3 │") {
		t.Fatalf("expected right-aligned attempts column:\n%s", right)
	}
}

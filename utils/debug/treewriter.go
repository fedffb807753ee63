// Package debug has helpers producing human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value, so empty lines and trailing
// blanks in page texts stay visible.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Geometry writes rectangle as "label: x,y wxh" with one decimal.
func (tw TreeWriter) Geometry(depth int, label string, x, y, w, h float64) {
	tw.Line(depth, "%s: %s,%s %sx%s", label, num(x), num(y), num(w), num(h))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func encodeText(raw string) string {
	return strconv.Quote(raw)
}

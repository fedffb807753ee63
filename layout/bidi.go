package layout

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"golang.org/x/text/unicode/bidi"
)

const (
	lrm = '\u200e'
	rlm = '\u200f'
)

// Visual returns line in display order, left to right. rtl is direction of
// the paragraph line belongs to. Right to left runs are reversed by grapheme
// cluster and their brackets mirrored, left to right runs (names, numbers)
// keep their order.
func Visual(text string, rtl bool) string {
	clusters, order := visualOrder(text, rtl)
	var sb strings.Builder
	sb.Grow(len(text))
	for _, i := range order {
		sb.WriteString(clusters[i])
	}
	return sb.String()
}

// visualOrder splits text into grapheme clusters. order[v] is index of the
// cluster shown v-th from the left. Clusters on right to left levels come
// back mirrored.
func visualOrder(text string, rtl bool) ([]string, []int) {
	var (
		clusters []string
		levels   []int
	)
	runeLevels := embeddingLevels(text, rtl)
	pos := 0
	it := graphemes.FromString(text)
	for it.Next() {
		c := it.Value()
		lvl := runeLevels[pos]
		if lvl%2 == 1 && utf8.RuneCountInString(c) == 1 {
			c = bidi.ReverseString(c)
		}
		clusters = append(clusters, c)
		levels = append(levels, lvl)
		pos += utf8.RuneCountInString(it.Value())
	}

	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	top := 0
	if len(levels) > 0 {
		top = slices.Max(levels)
	}
	// from the highest level down to the lowest odd one reverse every
	// sequence at that level or above
	for k := top; k >= 1; k-- {
		for i := 0; i < len(order); {
			if levels[order[i]] < k {
				i++
				continue
			}
			j := i
			for j < len(order) && levels[order[j]] >= k {
				j++
			}
			slices.Reverse(order[i:j])
			i = j
		}
	}
	return clusters, order
}

// embeddingLevels resolves level of every rune of text, odd levels are right
// to left. Paragraph direction is forced with leading mark so line direction
// never overrides it.
func embeddingLevels(text string, rtl bool) []int {
	runes := []rune(text)
	base, mark := 0, lrm
	var opts []bidi.Option
	if rtl {
		base, mark = 1, rlm
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	}
	levels := make([]int, len(runes))
	for i := range levels {
		levels[i] = base
	}
	if len(runes) == 0 {
		return levels
	}

	var p bidi.Paragraph
	if _, err := p.SetString(string(mark)+text, opts...); err != nil {
		return levels
	}
	o, err := p.Order()
	if err != nil {
		return levels
	}
	for i := range o.NumRuns() {
		run := o.Run(i)
		start, end := run.Pos()
		for j := max(start, 1); j <= end && j <= len(runes); j++ {
			switch {
			case run.Direction() == bidi.RightToLeft:
				levels[j-1] = 1
			case rtl:
				levels[j-1] = 2
			default:
				levels[j-1] = 0
			}
		}
	}
	if !rtl {
		raiseNumbers(runes, levels)
	}
	return levels
}

// raiseNumbers puts numbers following right to left text in left to right
// paragraph one level above it. Ordering only reports direction of runs, so
// such numbers are not distinguishable from surrounding left to right text
// otherwise.
func raiseNumbers(runes []rune, levels []int) {
	class := func(i int) bidi.Class {
		props, _ := bidi.LookupRune(runes[i])
		return props.Class()
	}
	afterRTL := false
	for i := range runes {
		switch c := class(i); c {
		case bidi.L:
			afterRTL = false
		case bidi.R, bidi.AL:
			afterRTL = true
		case bidi.AN:
			if levels[i] == 0 {
				levels[i] = 2
			}
		case bidi.EN:
			if afterRTL && levels[i] == 0 {
				levels[i] = 2
			}
		}
	}
	// separators inside numbers and marks on digits follow them
	for i := 1; i < len(runes); i++ {
		if levels[i] != 0 || levels[i-1] != 2 {
			continue
		}
		switch class(i) {
		case bidi.NSM, bidi.ET:
			levels[i] = 2
		case bidi.ES, bidi.CS:
			if i+1 < len(runes) && levels[i+1] == 2 {
				levels[i] = 2
			}
		}
	}
}

package layout

import (
	"math"
	"strings"
)

const (
	// quote glyphs shrink to this fraction of quote size at line ends
	quoteMinScale = 0.7
	// and rise by this fraction of quote size in the middle
	quoteLift = 0.18
	// ornament is drawn from 500x60 artwork
	ornamentAspect = 60.0 / 500.0
)

// envelope is 0 at both ends of the line and 1 in the middle.
func envelope(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	t := (float64(i) + 0.5) / float64(n)
	return math.Sin(math.Pi * t)
}

// quote lays decorative single line quote out cluster by cluster: size and
// vertical offset follow envelope, so line is fuller in the middle.
func (b *builder) quote(text string, column Rect, top float64) *Quote {
	text = strings.Join(strings.Fields(strings.ReplaceAll(text, "\n", " ")), " ")
	if text == "" {
		return nil
	}
	base := b.cfg.Font.QuoteSize
	q := &Quote{Text: text, RTL: IsRTL(text)}
	clusters, order := visualOrder(text, q.RTL)
	n := len(clusters)

	sizes := make([]float64, n)
	widths := make([]float64, n)
	total := 0.0
	for i, c := range clusters {
		sizes[i] = base * (quoteMinScale + (1-quoteMinScale)*envelope(i, n))
		widths[i] = b.ctx.Measurer.Measure(c, sizes[i], false)
		total += widths[i]
	}
	// too wide quote is scaled down as a whole
	if total > column.W && total > 0 {
		k := column.W / total
		for i := range sizes {
			sizes[i] *= k
			widths[i] *= k
		}
		total = column.W
		base *= k
	}

	start := column.CenterX() - total/2
	xs := make([]float64, n)
	advance := 0.0
	for _, i := range order {
		xs[i] = start + advance
		advance += widths[i]
	}

	baseline := top + base*quoteLift + b.ascent(base)
	minY, maxY := math.Inf(1), math.Inf(-1)
	// glyphs stay in reading order, envelope follows it
	for i, c := range clusters {
		bl := baseline - base*quoteLift*envelope(i, n)
		g := Glyph{Char: c, X: xs[i], Y: bl - b.ascent(sizes[i]), Size: sizes[i], Baseline: bl}
		minY, maxY = min(minY, g.Y), max(maxY, g.Y+sizes[i])
		q.Glyphs = append(q.Glyphs, g)
	}
	q.Box = Rect{X: start, Y: minY, W: total, H: maxY - minY}

	ow := min(column.W, total*1.2)
	q.Ornament = Rect{X: column.CenterX() - ow/2, Y: q.Box.Bottom() + base*0.25, W: ow, H: ow * ornamentAspect}

	// keep whole decoration on the page
	if over := q.Ornament.Bottom() - (b.h - b.cfg.Margin); over > 0 {
		shift := min(over, q.Box.Y)
		q.Box.Y -= shift
		q.Ornament.Y -= shift
		for i := range q.Glyphs {
			q.Glyphs[i].Y -= shift
			q.Glyphs[i].Baseline -= shift
		}
	}
	return q
}

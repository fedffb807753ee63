// Package layout computes renderable model of a storybook page. Builder is
// pure: assets are only referenced by already resolved locations and text
// is measured with supplied Measurer. Both SVG and raster renderers draw
// from the same model.
package layout

import (
	"fmt"

	"sbadm/common"
	"sbadm/utils/debug"
)

// Fit says how image is scaled into its box.
type Fit int

const (
	// FitCover fills the box cropping excess.
	FitCover Fit = iota
	// FitContain shows whole image inside the box.
	FitContain
)

func (f Fit) String() string {
	if f == FitContain {
		return "contain"
	}
	return "cover"
}

type Image struct {
	URL string
	Box Rect
	Fit Fit
	// Align is horizontal alignment of contained image: -1 left, 0 center,
	// 1 right. Contained images always sit on the bottom of the box.
	Align int
	// Round clips image to ellipse inscribed into the box.
	Round bool
}

// Line is a single line of text. X, Y is top left corner of the line box,
// baseline is at Y + Ascent.
type Line struct {
	Text   string
	X, Y   float64
	Width  float64
	Size   float64
	Ascent float64
	Bold   bool
	RTL    bool
}

type TextBlock struct {
	Role  string
	Lines []Line
	Box   Rect
}

// Glyph is a single grapheme cluster of decorative quote.
type Glyph struct {
	Char     string
	X, Y     float64
	Size     float64
	Baseline float64
}

type Quote struct {
	Text     string
	RTL      bool
	Glyphs   []Glyph
	Box      Rect
	Ornament Rect
}

// Panel is translucent backdrop behind text. Blurred panels show blurred
// copy of background clipped by soft elliptical mask.
type Panel struct {
	Box     Rect
	Opacity float64
	Blur    bool
	Mask    Ellipse
}

type Model struct {
	Kind          common.PageKind
	Index         int
	Width, Height float64
	Anchor        common.Anchor

	Background *Image
	Character  *Image
	Portrait   *Image
	QR         *Image
	Panel      *Panel
	Blocks     []TextBlock
	Quote      *Quote

	// Key is content derived cache key model was built for.
	Key string
}

// Images returns all image references in drawing order.
func (m *Model) Images() []*Image {
	var out []*Image
	for _, img := range []*Image{m.Background, m.Character, m.Portrait, m.QR} {
		if img != nil && img.URL != "" {
			out = append(out, img)
		}
	}
	return out
}

// Dump produces human readable model description for debug reports.
func (m *Model) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "page %d: %s %.0fx%.0f anchor=%s", m.Index, m.Kind, m.Width, m.Height, m.Anchor)
	if m.Key != "" {
		tw.Line(1, "key: %s", m.Key)
	}
	dumpImage := func(label string, img *Image) {
		if img == nil {
			return
		}
		tw.Geometry(1, label, img.Box.X, img.Box.Y, img.Box.W, img.Box.H)
		tw.TextBlock(2, "url", img.URL)
		tw.Line(2, "fit: %s", img.Fit)
	}
	dumpImage("background", m.Background)
	dumpImage("character", m.Character)
	dumpImage("portrait", m.Portrait)
	dumpImage("qr", m.QR)
	if m.Panel != nil {
		tw.Geometry(1, "panel", m.Panel.Box.X, m.Panel.Box.Y, m.Panel.Box.W, m.Panel.Box.H)
		tw.Line(2, "opacity: %.2f blur: %t", m.Panel.Opacity, m.Panel.Blur)
	}
	for _, b := range m.Blocks {
		tw.Geometry(1, "text "+b.Role, b.Box.X, b.Box.Y, b.Box.W, b.Box.H)
		for i, l := range b.Lines {
			tw.TextBlock(2, fmt.Sprintf("line %d", i), l.Text)
		}
	}
	if m.Quote != nil {
		tw.Geometry(1, "quote", m.Quote.Box.X, m.Quote.Box.Y, m.Quote.Box.W, m.Quote.Box.H)
		tw.TextBlock(2, "text", m.Quote.Text)
		tw.Line(2, "glyphs: %d rtl: %t", len(m.Quote.Glyphs), m.Quote.RTL)
	}
	return tw.String()
}

package layout

import (
	"math"

	"sbadm/asset"
	"sbadm/common"
	"sbadm/config"
	"sbadm/entity"
)

// Context carries everything model depends on besides the page itself.
type Context struct {
	ReaderName string
	Gender     common.Gender
	Render     *config.RenderConfig
	Measurer   Measurer
}

type metrics interface {
	Metrics(size float64) (ascent, descent float64)
}

type builder struct {
	ctx  *Context
	cfg  *config.RenderConfig
	w, h float64
}

// Build computes layout model for page at index. Returns nil when there is
// nothing to build.
func Build(page *entity.Page, index int, ctx *Context) *Model {
	if page == nil || ctx == nil || ctx.Render == nil || ctx.Measurer == nil {
		return nil
	}
	b := &builder{ctx: ctx, cfg: ctx.Render, w: float64(ctx.Render.Width), h: float64(ctx.Render.Height)}

	m := &Model{
		Kind:   page.Kind(),
		Index:  index,
		Width:  b.w,
		Height: b.h,
		Anchor: common.AnchorAuto,
	}
	if url := asset.Resolve(page.Background); url != "" {
		m.Background = &Image{URL: url, Box: Rect{W: b.w, H: b.h}, Fit: FitCover}
	}

	switch m.Kind {
	case common.PageKindCover:
		b.cover(m, page)
	case common.PageKindDedication:
		b.dedication(m, page)
	default:
		b.story(m, page, index)
	}
	return m
}

func (b *builder) lineHeight(size float64) float64 {
	return size * max(b.cfg.Font.LineHeight, 1)
}

func (b *builder) ascent(size float64) float64 {
	if mm, ok := b.ctx.Measurer.(metrics); ok {
		a, _ := mm.Metrics(size)
		return a
	}
	return size * 0.8
}

// block lays lines out top down starting at top, each centered in column.
func (b *builder) block(role string, lines []string, size float64, bold bool, column Rect, top float64) TextBlock {
	tb := TextBlock{Role: role}
	lh := b.lineHeight(size)
	left, right := math.Inf(1), math.Inf(-1)
	for i, text := range lines {
		width := b.ctx.Measurer.Measure(text, size, bold)
		l := Line{
			Text:   text,
			X:      column.CenterX() - width/2,
			Y:      top + float64(i)*lh,
			Width:  width,
			Size:   size,
			Ascent: b.ascent(size),
			Bold:   bold,
			RTL:    IsRTL(text),
		}
		left, right = min(left, l.X), max(right, l.X+width)
		tb.Lines = append(tb.Lines, l)
	}
	if len(tb.Lines) == 0 {
		tb.Box = Rect{X: column.CenterX(), Y: top}
		return tb
	}
	tb.Box = Rect{X: left, Y: top, W: right - left, H: float64(len(lines)) * lh}
	return tb
}

func (b *builder) story(m *Model, page *entity.Page, index int) {
	cfg := b.cfg
	anchor := page.Anchor()
	if anchor == common.AnchorAuto {
		anchor = common.AnchorLeft
		if index%2 != 0 {
			anchor = common.AnchorRight
		}
	}
	m.Anchor = anchor

	half := b.w / 2
	charBox, column := Rect{X: 0, W: half, H: b.h}, Rect{X: half + cfg.Margin, W: half - 2*cfg.Margin}
	align := -1
	if anchor == common.AnchorRight {
		charBox.X, column.X = half, cfg.Margin
		align = 1
	}
	if url := asset.Resolve(page.CharacterAsset()); url != "" {
		m.Character = &Image{URL: url, Box: charBox, Fit: FitContain, Align: align}
	}

	bottom := cfg.Margin
	if page.Text != "" {
		text := Substitute(page.Text, b.ctx.ReaderName, b.ctx.Gender, false)
		tb := b.block("story", SplitLines(text), cfg.Font.Size, false, column, cfg.Margin+cfg.Padding)
		box := Rect{X: tb.Box.X - cfg.Padding, Y: tb.Box.Y - cfg.Padding, W: tb.Box.W + 2*cfg.Padding, H: tb.Box.H + 2*cfg.Padding}.Clamp(b.w, b.h)
		m.Panel = &Panel{Box: box, Opacity: cfg.PanelOpacity, Blur: true, Mask: MaskFor(box)}
		m.Blocks = append(m.Blocks, tb)
		bottom = box.Bottom()
	}

	if page.Quote != "" {
		text := Substitute(page.Quote, b.ctx.ReaderName, b.ctx.Gender, false)
		m.Quote = b.quote(text, column, bottom+cfg.Padding)
	}
}

func (b *builder) cover(m *Model, page *entity.Page) {
	cfg := b.cfg
	if url := asset.Resolve(page.CharacterAsset()); url != "" {
		m.Character = &Image{URL: url, Box: Rect{W: b.w, H: b.h}, Fit: FitContain}
	}

	ct := ResolveCoverText(page.Cover, b.ctx.ReaderName, b.ctx.Gender, cfg.UppercaseName)
	var qrURL string
	if page.Cover != nil {
		qrURL = asset.Resolve(page.Cover.QRCode)
	}

	panelW := min(cfg.CoverMaxWidth, b.w-2*cfg.Margin)
	inner := max(panelW-2*cfg.Padding, 1)

	type part struct {
		role string
		text string
		size float64
		bold bool
	}
	parts := []part{
		{"headline", ct.Headline, cfg.Font.TitleSize, true},
		{"body", ct.Body, cfg.Font.Size, false},
		{"footer", ct.Footer, cfg.Font.Size * 0.75, false},
	}
	gap := cfg.Font.Size * 0.5

	var wrapped [][]string
	contentH := 0.0
	for _, p := range parts {
		var lines []string
		if p.text != "" {
			lines = Wrap(p.text, inner, p.size, p.bold, b.ctx.Measurer)
			if contentH > 0 {
				contentH += gap
			}
			contentH += float64(len(lines)) * b.lineHeight(p.size)
		}
		wrapped = append(wrapped, lines)
	}
	qrSize := min(inner, cfg.Font.Size*4)
	if qrURL != "" {
		if contentH > 0 {
			contentH += gap
		}
		contentH += qrSize
	}
	if contentH == 0 {
		return
	}

	box := Rect{
		X: (b.w - panelW) / 2,
		Y: b.h - cfg.Margin - contentH - 2*cfg.Padding,
		W: panelW,
		H: contentH + 2*cfg.Padding,
	}.Clamp(b.w, b.h)
	m.Panel = &Panel{Box: box, Opacity: cfg.PanelOpacity, Blur: true, Mask: MaskFor(box)}

	column := Rect{X: box.X + cfg.Padding, W: inner}
	y := box.Y + cfg.Padding
	for i, p := range parts {
		if len(wrapped[i]) == 0 {
			continue
		}
		if y > box.Y+cfg.Padding {
			y += gap
		}
		tb := b.block(p.role, wrapped[i], p.size, p.bold, column, y)
		m.Blocks = append(m.Blocks, tb)
		y = tb.Box.Bottom()
	}
	if qrURL != "" {
		if y > box.Y+cfg.Padding {
			y += gap
		}
		m.QR = &Image{URL: qrURL, Box: Rect{X: box.CenterX() - qrSize/2, Y: y, W: qrSize, H: qrSize}.Clamp(b.w, b.h), Fit: FitContain}
	}
}

func (b *builder) dedication(m *Model, page *entity.Page) {
	cfg := b.cfg
	meta := page.Dedication
	if meta == nil {
		meta = &entity.DedicationMeta{}
	}

	column := Rect{X: cfg.Margin, W: b.w - 2*cfg.Margin}
	y := cfg.Margin
	for _, p := range []struct {
		role string
		text string
		size float64
		bold bool
	}{
		{"title", meta.Title, cfg.Font.TitleSize, true},
		{"subtitle", meta.Subtitle, cfg.Font.Size, false},
	} {
		if p.text == "" {
			continue
		}
		text := Substitute(p.text, b.ctx.ReaderName, b.ctx.Gender, cfg.UppercaseName)
		tb := b.block(p.role, Wrap(text, column.W, p.size, p.bold, b.ctx.Measurer), p.size, p.bold, column, y)
		m.Blocks = append(m.Blocks, tb)
		y = tb.Box.Bottom() + cfg.Font.Size*0.5
	}

	if url := asset.Resolve(meta.Portrait); url != "" {
		size := 0.4 * min(b.w, b.h)
		m.Portrait = &Image{
			URL:   url,
			Box:   Rect{X: (b.w - size) / 2, Y: b.h - cfg.Margin - size, W: size, H: size}.Clamp(b.w, b.h),
			Fit:   FitCover,
			Round: true,
		}
	}
}

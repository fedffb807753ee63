package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"sbadm/asset"
	"sbadm/config"
	"sbadm/layout"
	imgutil "sbadm/utils/images"
)

// SVG renders layout models into standalone SVG documents.
type SVG struct {
	loader   *asset.Loader
	family   string
	blur     config.BlurConfig
	ornament []byte
	log      *zap.Logger
}

// NewSVG creates vector renderer. With loader assets are embedded into the
// document as data locations (broken ones replaced with placeholder),
// without it model locations are referenced directly.
func NewSVG(loader *asset.Loader, family string, blur config.BlurConfig, ornament []byte, log *zap.Logger) *SVG {
	if log == nil {
		log = zap.NewNop()
	}
	if family == "" {
		family = "sans-serif"
	}
	return &SVG{loader: loader, family: family, blur: blur, ornament: ornament, log: log.Named("svg")}
}

func num(v float64) string {
	return strconv.FormatFloat(round1(v), 'f', -1, 64)
}

func setRect(el *etree.Element, r layout.Rect) {
	el.CreateAttr("x", num(r.X))
	el.CreateAttr("y", num(r.Y))
	el.CreateAttr("width", num(r.W))
	el.CreateAttr("height", num(r.H))
}

func dataURI(data []byte) string {
	mime := "application/octet-stream"
	switch {
	case imgutil.IsSVG(data):
		mime = "image/svg+xml"
	default:
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			mime = kind.MIME.Value
		}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// href returns location to put into document for image.
func (r *SVG) href(ctx context.Context, url string) string {
	if r.loader == nil {
		return url
	}
	data, err := r.loader.Data(ctx, url)
	if err == nil {
		return dataURI(data)
	}
	r.log.Warn("Unable to embed asset, using placeholder", zap.String("location", url), zap.Error(err))
	return r.placeholderURI()
}

func (r *SVG) placeholderURI() string {
	if r.loader == nil {
		return ""
	}
	if p := r.loader.PlaceholderData(); len(p) > 0 {
		return dataURI(p)
	}
	return ""
}

func preserveAspect(img *layout.Image) string {
	if img.Fit == layout.FitCover {
		return "xMidYMid slice"
	}
	switch {
	case img.Align < 0:
		return "xMinYMax meet"
	case img.Align > 0:
		return "xMaxYMax meet"
	}
	return "xMidYMax meet"
}

// Render produces SVG document for model.
func (r *SVG) Render(ctx context.Context, m *layout.Model) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nothing to render")
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	root := doc.CreateElement("svg")
	root.CreateAttr("version", "1.1")
	root.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	root.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	root.CreateAttr("width", num(m.Width))
	root.CreateAttr("height", num(m.Height))
	root.CreateAttr("viewBox", fmt.Sprintf("0 0 %s %s", num(m.Width), num(m.Height)))
	defs := root.CreateElement("defs")

	page := root.CreateElement("rect")
	setRect(page, layout.Rect{W: m.Width, H: m.Height})
	page.CreateAttr("fill", hexColor(pageColor))

	hrefs := make(map[string]string)
	resolve := func(url string) string {
		if h, ok := hrefs[url]; ok {
			return h
		}
		h := r.href(ctx, url)
		hrefs[url] = h
		return h
	}

	clips := 0
	image := func(parent *etree.Element, img *layout.Image) *etree.Element {
		if img == nil {
			return nil
		}
		el := parent.CreateElement("image")
		setRect(el, img.Box)
		el.CreateAttr("preserveAspectRatio", preserveAspect(img))
		el.CreateAttr("xlink:href", resolve(img.URL))
		clips++
		clip := defs.CreateElement("clipPath")
		id := fmt.Sprintf("clip-%d", clips)
		clip.CreateAttr("id", id)
		if img.Round {
			e := layout.MaskFor(img.Box)
			shape := clip.CreateElement("ellipse")
			shape.CreateAttr("cx", num(e.CX))
			shape.CreateAttr("cy", num(e.CY))
			shape.CreateAttr("rx", num(e.RX))
			shape.CreateAttr("ry", num(e.RY))
		} else {
			setRect(clip.CreateElement("rect"), img.Box)
		}
		el.CreateAttr("clip-path", "url(#"+id+")")
		return el
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	image(root, m.Background)
	image(root, m.Character)
	if m.Panel != nil {
		r.panel(root, defs, m, resolve)
	}
	for _, b := range m.Blocks {
		g := root.CreateElement("g")
		g.CreateAttr("class", b.Role)
		for _, l := range b.Lines {
			if l.Text == "" {
				continue
			}
			t := g.CreateElement("text")
			t.CreateAttr("x", num(l.X+l.Width/2))
			t.CreateAttr("y", num(l.Y+l.Ascent))
			t.CreateAttr("font-family", r.family)
			t.CreateAttr("font-size", num(l.Size))
			if l.Bold {
				t.CreateAttr("font-weight", "bold")
			}
			t.CreateAttr("text-anchor", "middle")
			if l.RTL {
				t.CreateAttr("direction", "rtl")
			}
			t.CreateAttr("fill", hexColor(textColor))
			t.SetText(l.Text)
		}
	}
	image(root, m.Portrait)
	image(root, m.QR)
	if m.Quote != nil {
		r.quote(root, m.Quote)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("unable to write SVG: %w", err)
	}
	return buf.Bytes(), nil
}

// panel draws blurred copy of background and translucent fill, both under
// soft elliptical mask.
func (r *SVG) panel(root, defs *etree.Element, m *layout.Model, resolve func(string) string) {
	p := m.Panel

	mask := defs.CreateElement("mask")
	mask.CreateAttr("id", "panel-mask")
	mask.CreateAttr("maskUnits", "userSpaceOnUse")
	setRect(mask, p.Box)
	grad := defs.CreateElement("radialGradient")
	grad.CreateAttr("id", "panel-gradient")
	grad.CreateAttr("cx", "0.5")
	grad.CreateAttr("cy", "0.5")
	grad.CreateAttr("r", "0.5")
	for _, s := range maskStops(p.Mask) {
		stop := grad.CreateElement("stop")
		stop.CreateAttr("offset", num(s[0]*100)+"%")
		stop.CreateAttr("stop-color", "#ffffff")
		stop.CreateAttr("stop-opacity", strconv.FormatFloat(s[1], 'f', 3, 64))
	}
	shape := mask.CreateElement("rect")
	setRect(shape, p.Box)
	shape.CreateAttr("fill", "url(#panel-gradient)")

	g := root.CreateElement("g")
	g.CreateAttr("class", "panel")
	g.CreateAttr("mask", "url(#panel-mask)")

	if p.Blur && m.Background != nil {
		filter := defs.CreateElement("filter")
		filter.CreateAttr("id", "panel-blur")
		// blur must not fade out at region edges
		filter.CreateAttr("x", "0")
		filter.CreateAttr("y", "0")
		filter.CreateAttr("width", "1")
		filter.CreateAttr("height", "1")
		fe := filter.CreateElement("feGaussianBlur")
		fe.CreateAttr("stdDeviation", num(BlurSigma(r.blur)))
		fe.CreateAttr("edgeMode", "duplicate")

		clip := defs.CreateElement("clipPath")
		clip.CreateAttr("id", "panel-clip")
		setRect(clip.CreateElement("rect"), p.Box)

		inner := g.CreateElement("g")
		inner.CreateAttr("clip-path", "url(#panel-clip)")
		dup := inner.CreateElement("image")
		setRect(dup, m.Background.Box)
		dup.CreateAttr("preserveAspectRatio", preserveAspect(m.Background))
		dup.CreateAttr("xlink:href", resolve(m.Background.URL))
		dup.CreateAttr("filter", "url(#panel-blur)")
	}

	fill := g.CreateElement("rect")
	setRect(fill, p.Box)
	fill.CreateAttr("fill", hexColor(panelColor))
	fill.CreateAttr("fill-opacity", strconv.FormatFloat(p.Opacity, 'f', 3, 64))
}

func (r *SVG) quote(root *etree.Element, q *layout.Quote) {
	g := root.CreateElement("g")
	g.CreateAttr("class", "quote")
	g.CreateAttr("font-family", r.family)
	g.CreateAttr("fill", hexColor(quoteColor))
	for _, gl := range q.Glyphs {
		if gl.Char == " " {
			continue
		}
		t := g.CreateElement("text")
		t.CreateAttr("x", num(gl.X))
		t.CreateAttr("y", num(gl.Baseline))
		t.CreateAttr("font-size", num(gl.Size))
		t.SetText(gl.Char)
	}
	if len(r.ornament) > 0 && q.Ornament.W > 0 {
		el := g.CreateElement("image")
		setRect(el, q.Ornament)
		el.CreateAttr("preserveAspectRatio", "xMidYMid meet")
		el.CreateAttr("xlink:href", dataURI(r.ornament))
	}
}

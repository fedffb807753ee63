package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"sbadm/asset"
	"sbadm/config"
	"sbadm/layout"
	imgutil "sbadm/utils/images"
)

// CanvasOptions tune raster renderer.
type CanvasOptions struct {
	Blur     config.BlurConfig
	Ornament []byte
	// Strict makes any asset which could not be loaded a drawing failure,
	// otherwise placeholder is drawn in its place.
	Strict bool
}

// Canvas draws layout models on raster images.
type Canvas struct {
	loader *asset.Loader
	fonts  *layout.Fonts
	opts   CanvasOptions
	log    *zap.Logger
}

func NewCanvas(loader *asset.Loader, fonts *layout.Fonts, opts CanvasOptions, log *zap.Logger) *Canvas {
	if log == nil {
		log = zap.NewNop()
	}
	return &Canvas{loader: loader, fonts: fonts, opts: opts, log: log.Named("canvas")}
}

func pixelRect(r layout.Rect) image.Rectangle {
	return image.Rect(int(math.Floor(r.X)), int(math.Floor(r.Y)), int(math.Ceil(r.Right())), int(math.Ceil(r.Bottom())))
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// ellipseMask exposes layout ellipse as alpha mask in page coordinates.
type ellipseMask struct {
	e layout.Ellipse
}

func (m ellipseMask) ColorModel() color.Model { return color.AlphaModel }
func (m ellipseMask) Bounds() image.Rectangle {
	return pixelRect(layout.Rect{X: m.e.CX - m.e.RX, Y: m.e.CY - m.e.RY, W: 2 * m.e.RX, H: 2 * m.e.RY})
}
func (m ellipseMask) At(x, y int) color.Color {
	return color.Alpha{A: uint8(math.Round(255 * m.e.Alpha(float64(x)+0.5, float64(y)+0.5)))}
}

func (c *Canvas) load(ctx context.Context, img *layout.Image) (image.Image, error) {
	if img == nil || img.URL == "" {
		return nil, nil
	}
	if c.loader == nil {
		return nil, errors.New("no asset loader")
	}
	if c.opts.Strict {
		src, err := c.loader.Load(ctx, img.URL)
		if err != nil {
			return nil, fmt.Errorf("unable to load image: %w", err)
		}
		return src, nil
	}
	return c.loader.LoadOrPlaceholder(ctx, img.URL), nil
}

// drawImage scales src into image box according to its fit and draws it
// over dst.
func drawImage(dst draw.Image, src image.Image, img *layout.Image) {
	box := pixelRect(img.Box)
	sb := src.Bounds()
	if box.Empty() || sb.Empty() {
		return
	}

	var fitted image.Image
	var at image.Point
	if img.Fit == layout.FitCover {
		fitted = imaging.Fill(src, box.Dx(), box.Dy(), imaging.Center, imaging.Lanczos)
		at = box.Min
	} else {
		scale := min(float64(box.Dx())/float64(sb.Dx()), float64(box.Dy())/float64(sb.Dy()))
		fw := max(int(math.Round(float64(sb.Dx())*scale)), 1)
		fh := max(int(math.Round(float64(sb.Dy())*scale)), 1)
		fitted = imaging.Resize(src, fw, fh, imaging.Lanczos)
		x := box.Min.X + (box.Dx()-fw)/2
		switch {
		case img.Align < 0:
			x = box.Min.X
		case img.Align > 0:
			x = box.Max.X - fw
		}
		at = image.Pt(x, box.Max.Y-fh)
	}

	r := image.Rectangle{Min: at, Max: at.Add(fitted.Bounds().Size())}
	if img.Round {
		e := layout.MaskFor(img.Box)
		// nearly hard edge, just enough to antialias
		e.Inner = 0.98
		draw.DrawMask(dst, r, fitted, fitted.Bounds().Min, ellipseMask{e: e}, r.Min, draw.Over)
		return
	}
	draw.Draw(dst, r, fitted, fitted.Bounds().Min, draw.Over)
}

// Draw renders model on white canvas of model size.
func (c *Canvas) Draw(ctx context.Context, m *layout.Model) (*image.RGBA, error) {
	if m == nil {
		return nil, errors.New("nothing to render")
	}
	w, h := int(math.Round(m.Width)), int(math.Round(m.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bad page size %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(pageColor), image.Point{}, draw.Src)

	step := func(img *layout.Image, label string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := c.load(ctx, img)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if src != nil {
			drawImage(dst, src, img)
		}
		return nil
	}

	if err := step(m.Background, "background"); err != nil {
		return nil, err
	}
	// blurred panel shows background only
	var bgLayer *image.RGBA
	if m.Panel != nil && m.Panel.Blur && m.Background != nil {
		bgLayer = image.NewRGBA(dst.Bounds())
		copy(bgLayer.Pix, dst.Pix)
	}
	if err := step(m.Character, "character"); err != nil {
		return nil, err
	}
	if m.Panel != nil {
		c.panel(dst, bgLayer, m.Panel)
	}
	if err := c.text(ctx, dst, m.Blocks); err != nil {
		return nil, err
	}
	if err := step(m.Portrait, "portrait"); err != nil {
		return nil, err
	}
	if err := step(m.QR, "qr code"); err != nil {
		return nil, err
	}
	if m.Quote != nil {
		if err := c.quote(dst, m.Quote); err != nil {
			return nil, err
		}
	}
	return dst, ctx.Err()
}

// panel composes blurred background (when there is one) and translucent
// fill, then puts result over dst through soft mask.
func (c *Canvas) panel(dst, bgLayer *image.RGBA, p *layout.Panel) {
	box := pixelRect(p.Box).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	var blurred *image.NRGBA
	if bgLayer != nil {
		blurred = blurRegion(bgLayer.SubImage(box), c.opts.Blur)
	}
	fill := [3]uint8{panelColor.R, panelColor.G, panelColor.B}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			a := p.Mask.Alpha(float64(x)+0.5, float64(y)+0.5)
			if a == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+3 : i+3]
			base := [3]uint8{px[0], px[1], px[2]}
			if blurred != nil {
				j := blurred.PixOffset(x-box.Min.X, y-box.Min.Y)
				base = [3]uint8{blurred.Pix[j], blurred.Pix[j+1], blurred.Pix[j+2]}
			}
			for ch := range 3 {
				px[ch] = mix(px[ch], mix(base[ch], fill[ch], p.Opacity), a)
			}
		}
	}
}

func (c *Canvas) text(ctx context.Context, dst *image.RGBA, blocks []layout.TextBlock) error {
	src := image.NewUniform(textColor)
	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, l := range b.Lines {
			if l.Text == "" {
				continue
			}
			if c.fonts == nil {
				return errors.New("no fonts to draw text with")
			}
			if err := c.fonts.Draw(dst, src, layout.Visual(l.Text, l.RTL), l.X, l.Y+l.Ascent, l.Size, l.Bold); err != nil {
				return fmt.Errorf("unable to draw %s text: %w", b.Role, err)
			}
		}
	}
	return nil
}

func (c *Canvas) quote(dst *image.RGBA, q *layout.Quote) error {
	if len(c.opts.Ornament) > 0 {
		box := pixelRect(q.Ornament)
		if !box.Empty() {
			orn, err := imgutil.RasterizeSVG(c.opts.Ornament, box.Dx(), box.Dy(), 1.0, nil)
			if err != nil {
				c.log.Warn("Unable to rasterize quote ornament", zap.Error(err))
			} else {
				ob := orn.Bounds()
				at := image.Pt(box.Min.X+(box.Dx()-ob.Dx())/2, box.Min.Y+(box.Dy()-ob.Dy())/2)
				draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(ob.Size())}, orn, ob.Min, draw.Over)
			}
		}
	}
	if c.fonts == nil {
		return errors.New("no fonts to draw quote with")
	}
	src := image.NewUniform(quoteColor)
	for _, g := range q.Glyphs {
		if g.Char == " " {
			continue
		}
		if err := c.fonts.Draw(dst, src, g.Char, g.X, g.Baseline, g.Size, false); err != nil {
			return fmt.Errorf("unable to draw quote: %w", err)
		}
	}
	return nil
}

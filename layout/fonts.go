package layout

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"
	"sync"

	"github.com/h2non/filetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Measurer returns advance width of text in pixels.
type Measurer interface {
	Measure(text string, size float64, bold bool) float64
}

// Fonts keeps parsed fonts and faces created for them. Same faces are used
// for measuring during layout and drawing in raster renderer, so both agree.
type Fonts struct {
	Family  string
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

// LoadFonts loads TTF/OTF font from path and uses it for both weights. With
// empty path Go fonts are used, they have no Hebrew glyphs.
func LoadFonts(path string) (*Fonts, error) {
	if path == "" {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("unable to parse built-in font: %w", err)
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, fmt.Errorf("unable to parse built-in font: %w", err)
		}
		return &Fonts{Family: "Go", regular: regular, bold: bold, faces: make(map[faceKey]font.Face)}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read font: %w", err)
	}
	if !filetype.Is(data, "ttf") && !filetype.Is(data, "otf") {
		return nil, fmt.Errorf("font %s is neither TTF nor OTF", path)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse font %s: %w", path, err)
	}
	family, err := f.Name(nil, 1)
	if err != nil || family == "" {
		family = "serif"
	}
	return &Fonts{Family: family, regular: f, bold: f, faces: make(map[faceKey]font.Face)}, nil
}

// Face returns cached face for weight and size.
func (f *Fonts) Face(bold bool, size float64) (font.Face, error) {
	key := faceKey{bold: bold, size: math.Round(size*4) / 4}

	f.mu.Lock()
	defer f.mu.Unlock()

	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}

func (f *Fonts) Measure(text string, size float64, bold bool) float64 {
	face, err := f.Face(bold, size)
	if err != nil {
		// should never happen with parsed font, fall back to rough estimate
		return float64(len([]rune(text))) * size * 0.5
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return float64(font.MeasureString(face, text)) / 64
}

// Metrics returns ascent and descent for size.
func (f *Fonts) Metrics(size float64) (ascent, descent float64) {
	face, err := f.Face(false, size)
	if err != nil {
		return size * 0.8, size * 0.2
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := face.Metrics()
	return float64(m.Ascent) / 64, float64(m.Descent) / 64
}

// Draw paints text with its left end of baseline at x, y.
func (f *Fonts) Draw(dst draw.Image, src image.Image, text string, x, y, size float64, bold bool) error {
	face, err := f.Face(bold, size)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(y * 64))},
	}
	d.DrawString(text)
	return nil
}

package images

import (
	"image"
	"image/color"
	"image/draw"
)

// IsGrayscale reports whether img is grayscale (all pixels have R==G==B).
// Export uses it to store pure black and white pages (dedications are often
// such) as single channel frames.
func IsGrayscale(img image.Image) bool {
	switch src := img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	case *image.RGBA:
		// fast path for canvas frames
		for i := 0; i+3 < len(src.Pix); i += 4 {
			if src.Pix[i] != src.Pix[i+1] || src.Pix[i+1] != src.Pix[i+2] {
				return false
			}
		}
		return true
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R != c.G || c.G != c.B {
				return false
			}
		}
	}
	return true
}

// ToGray converts img to single channel image.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	dst := image.NewGray(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}

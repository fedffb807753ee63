package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"sbadm/config"
)

// BoxBlur approximates gaussian blur with repeated box filters: every
// iteration is a horizontal pass followed by a vertical one, both of window
// 2*radius+1 with edge pixels repeated. Source image is not modified.
func BoxBlur(img image.Image, radius, iterations int) *image.NRGBA {
	src := imaging.Clone(img)
	if radius <= 0 || iterations <= 0 || src.Rect.Empty() {
		return src
	}
	tmp := image.NewNRGBA(src.Rect)
	for range iterations {
		boxPass(tmp, src, radius, true)
		boxPass(src, tmp, radius, false)
	}
	return src
}

// boxPass blurs src into dst along one axis. Both images must have the same
// bounds starting at 0,0.
func boxPass(dst, src *image.NRGBA, radius int, horizontal bool) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	length, lines := w, h
	if !horizontal {
		length, lines = h, w
	}
	window := 2*radius + 1

	offset := func(line, i int) int {
		i = min(max(i, 0), length-1)
		if horizontal {
			return line*src.Stride + i*4
		}
		return i*src.Stride + line*4
	}

	for line := range lines {
		var sum [4]int
		for i := -radius; i <= radius; i++ {
			p := offset(line, i)
			for c := range 4 {
				sum[c] += int(src.Pix[p+c])
			}
		}
		for i := range length {
			p := offset(line, i)
			for c := range 4 {
				dst.Pix[p+c] = uint8((sum[c] + window/2) / window)
			}
			out, in := offset(line, i-radius), offset(line, i+radius+1)
			for c := range 4 {
				sum[c] += int(src.Pix[in+c]) - int(src.Pix[out+c])
			}
		}
	}
}

// blurRegion blurs img over a copy reduced by downscale and brings result
// back to the original size.
func blurRegion(img image.Image, cfg config.BlurConfig) *image.NRGBA {
	b := img.Bounds()
	k := max(cfg.Downscale, 1)
	sw, sh := max(b.Dx()/k, 1), max(b.Dy()/k, 1)
	small := imaging.Resize(img, sw, sh, imaging.Box)
	blurred := BoxBlur(small, cfg.Radius, cfg.Iterations)
	return imaging.Resize(blurred, b.Dx(), b.Dy(), imaging.Linear)
}

// BlurSigma is standard deviation of gaussian equivalent to blurRegion with
// cfg, in full size pixels. Vector output uses it for feGaussianBlur.
func BlurSigma(cfg config.BlurConfig) float64 {
	r := float64(max(cfg.Radius, 0))
	v := float64(max(cfg.Iterations, 0)) * r * (r + 1) / 3
	return float64(max(cfg.Downscale, 1)) * math.Sqrt(v)
}

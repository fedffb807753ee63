package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"
	"regexp"
	"strconv"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// defaultSVGSize is used when SVG viewBox has no size, QR codes generated by
// some services come without one.
const defaultSVGSize = 1024

// maxRasterDim caps rasterized size in either dimension, viewBox values are
// coming from uploaded assets and could be anything.
var maxRasterDim = 8192

// strokeWidthRe matches stroke-width attributes and properties in SVG.
var strokeWidthRe = regexp.MustCompile(`(stroke-width\s*[=:]\s*["']?)(\d+(?:\.\d+)?)(["']?)`)

// ScaleSVGStrokeWidth multiplies all stroke-width values in SVG data by the
// given factor. Decorations are authored for on-screen size and need heavier
// lines when drawn on print sized canvas.
func ScaleSVGStrokeWidth(svgData []byte, factor float64) []byte {
	if factor <= 0 || factor == 1.0 {
		return svgData
	}
	return strokeWidthRe.ReplaceAllFunc(svgData, func(match []byte) []byte {
		sub := strokeWidthRe.FindSubmatch(match)
		if len(sub) < 4 {
			return match
		}
		value, err := strconv.ParseFloat(string(sub[2]), 64)
		if err != nil {
			return match
		}
		out := append([]byte{}, sub[1]...)
		out = strconv.AppendFloat(out, value*factor, 'f', -1, 64)
		return append(out, sub[3]...)
	})
}

// fitSize computes raster size for intrinsic w x h.
//
//   - no target: intrinsic size
//   - single target dimension: scale keeping aspect ratio
//   - both: fit into the box keeping aspect ratio
func fitSize(intrW, intrH, targetW, targetH int) (int, int) {
	w, h := intrW, intrH
	switch {
	case targetW <= 0 && targetH <= 0:
	case targetH <= 0:
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	case targetW <= 0:
		h = targetH
		w = int(math.Round(float64(h) * float64(intrW) / float64(intrH)))
	default:
		scale := math.Min(float64(targetW)/float64(intrW), float64(targetH)/float64(intrH))
		w = int(math.Round(float64(intrW) * scale))
		h = int(math.Round(float64(intrH) * scale))
	}
	w, h = max(w, 1), max(h, 1)
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}
	return w, h
}

// RasterizeSVG rasterizes SVG into RGBA image of requested size (see
// fitSize), filling it with bg first unless bg is nil.
func RasterizeSVG(svgData []byte, targetW, targetH int, strokeWidthFactor float64, bg color.Color) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(ScaleSVGStrokeWidth(svgData, strokeWidthFactor)))
	if err != nil {
		return nil, err
	}

	intrW, intrH := int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 {
		intrW = defaultSVGSize
	}
	if intrH <= 0 {
		intrH = defaultSVGSize
	}
	w, h := fitSize(intrW, intrH, targetW, targetH)
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg != nil {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}

// RasterizeSVGToImage rasterizes SVG on white background.
func RasterizeSVGToImage(svgData []byte, targetW, targetH int, strokeWidthFactor float64) (image.Image, error) {
	return RasterizeSVG(svgData, targetW, targetH, strokeWidthFactor, color.White)
}

// IsSVG reports whether data looks like SVG document, filetype matchers do
// not recognize text formats.
func IsSVG(data []byte) bool {
	head := bytes.TrimSpace(data[:min(len(data), 512)])
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	if bytes.HasPrefix(head, []byte("<svg")) {
		return true
	}
	return bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(data[:min(len(data), 2048)], []byte("<svg"))
}

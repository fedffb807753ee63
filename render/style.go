// Package render draws layout models. Vector renderer produces SVG document
// for preview, raster renderer draws the same model on an RGBA canvas for
// export. Neither adds anything the model does not have.
package render

import (
	"image/color"
	"math"

	"sbadm/layout"
)

var (
	pageColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	panelColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
	textColor  = color.RGBA{0x1d, 0x1d, 0x1f, 0xff}
	quoteColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

func hexColor(c color.RGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i], b[2+2*i] = digits[v>>4], digits[v&0x0f]
	}
	return string(b)
}

// maskStops samples panel mask along the radius, vector output has to
// express it as gradient stops.
func maskStops(e layout.Ellipse) [][2]float64 {
	const steps = 4
	stops := [][2]float64{{0, 1}, {e.Inner, 1}}
	for i := 1; i <= steps; i++ {
		r := e.Inner + (1-e.Inner)*float64(i)/steps
		// alpha along horizontal radius
		stops = append(stops, [2]float64{r, e.Alpha(e.CX+r*e.RX, e.CY)})
	}
	return stops
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package layout

import "math"

// Rect is axis aligned box in page pixels.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Inset shrinks rectangle by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: max(r.W-2*d, 0), H: max(r.H-2*d, 0)}
}

// Clamp moves and, if it does not fit, shrinks rectangle so it stays within
// 0,0 - w,h. Result never has negative origin or size.
func (r Rect) Clamp(w, h float64) Rect {
	r.W = min(max(r.W, 0), w)
	r.H = min(max(r.H, 0), h)
	r.X = min(max(r.X, 0), w-r.W)
	r.Y = min(max(r.Y, 0), h-r.H)
	return r
}

// Within reports whether rectangle fits 0,0 - w,h.
func (r Rect) Within(w, h float64) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 0 && r.H >= 0 && r.Right() <= w && r.Bottom() <= h
}

// Ellipse is soft edged mask, opaque inside of Inner fraction of radii and
// fading to transparent at the edge.
type Ellipse struct {
	CX, CY, RX, RY float64
	Inner          float64
}

// MaskFor returns ellipse inscribed into rectangle.
func MaskFor(r Rect) Ellipse {
	return Ellipse{CX: r.CenterX(), CY: r.CenterY(), RX: r.W / 2, RY: r.H / 2, Inner: 0.6}
}

// Alpha returns mask coverage at point, 0..1.
func (e Ellipse) Alpha(x, y float64) float64 {
	if e.RX <= 0 || e.RY <= 0 {
		return 0
	}
	dx, dy := (x-e.CX)/e.RX, (y-e.CY)/e.RY
	d := dx*dx + dy*dy
	switch {
	case d >= 1:
		return 0
	case d <= e.Inner*e.Inner:
		return 1
	}
	// smooth step between inner radius and the edge
	t := (1 - math.Sqrt(d)) / (1 - e.Inner)
	return t * t * (3 - 2*t)
}

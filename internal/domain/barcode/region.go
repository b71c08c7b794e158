package barcode

import "fmt"

// Rect is an axis-aligned rectangle in normalized frame coordinates
// (0..1 on both axes, origin top-left).
type Rect struct {
	X, Y, Width, Height float64
}

// Center returns the midpoint of r.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Region is the part of the camera frame in which detections are accepted.
type Region struct {
	Rect
}

// FullFrame accepts detections anywhere.
var FullFrame = Region{Rect{0, 0, 1, 1}}

// NewRegion validates and builds a region of interest.
func NewRegion(x, y, w, h float64) (Region, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > 1.0000001 || y+h > 1.0000001 {
		return Region{}, fmt.Errorf("region (%v,%v,%v,%v) is outside the unit frame", x, y, w, h)
	}
	return Region{Rect{x, y, w, h}}, nil
}

// Contains reports whether the centre of bounds lies inside the region.
// Detections without bounds (zero Rect) are accepted.
func (r Region) Contains(bounds Rect) bool {
	if bounds == (Rect{}) {
		return true
	}
	cx, cy := bounds.Center()
	return cx >= r.X && cx <= r.X+r.Width && cy >= r.Y && cy <= r.Y+r.Height
}

// Detection is one barcode reported by the camera in a frame.
type Detection struct {
	Code string
	// Symbology as reported by the detector; empty means unknown and is
	// inferred from the payload.
	Symbology Symbology
	Bounds    Rect
}

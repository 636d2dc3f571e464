// Package geometry provides the coordinate mapping, homography estimation
// and perspective resampling used to rectify a detected plate region.
package geometry

import (
	"fmt"
	"math"
)

// Point is a 2D point in pixel coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// Box is an axis-aligned bounding box in frame coordinates with a detection
// confidence in [0,1].
type Box struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
}

// Width returns the box width.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Validate checks the box invariants against the frame dimensions.
func (b Box) Validate(frameW, frameH int) error {
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return fmt.Errorf("degenerate box (%.1f,%.1f)-(%.1f,%.1f)", b.X1, b.Y1, b.X2, b.Y2)
	}
	if b.X1 < 0 || b.Y1 < 0 || b.X2 > float64(frameW) || b.Y2 > float64(frameH) {
		return fmt.Errorf("box (%.1f,%.1f)-(%.1f,%.1f) outside %dx%d frame",
			b.X1, b.Y1, b.X2, b.Y2, frameW, frameH)
	}
	if b.Confidence < 0 || b.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", b.Confidence)
	}
	return nil
}

// Expand grows the box by margin (a fraction of its width/height) on every
// side and clamps the result to the frame.
func (b Box) Expand(margin float64, frameW, frameH int) Box {
	if margin < 0 {
		margin = 0
	}
	dx := b.Width() * margin
	dy := b.Height() * margin
	out := Box{
		X1:         math.Max(0, b.X1-dx),
		Y1:         math.Max(0, b.Y1-dy),
		X2:         math.Min(float64(frameW), b.X2+dx),
		Y2:         math.Min(float64(frameH), b.Y2+dy),
		Confidence: b.Confidence,
	}
	return out
}

// Clamp restricts the box to the frame bounds.
func (b Box) Clamp(frameW, frameH int) Box {
	return Box{
		X1:         math.Max(0, math.Min(b.X1, float64(frameW))),
		Y1:         math.Max(0, math.Min(b.Y1, float64(frameH))),
		X2:         math.Max(0, math.Min(b.X2, float64(frameW))),
		Y2:         math.Max(0, math.Min(b.Y2, float64(frameH))),
		Confidence: b.Confidence,
	}
}

// Quad is a plate outline: four corners ordered clockwise starting at the
// top-left, in frame-global coordinates, with the corner network's
// confidence.
type Quad struct {
	Points     [4]Point
	Confidence float64
}

// QuadFromBox treats an axis-aligned box as a quad with no perspective
// distortion. Used as the degraded-mode fallback when the corner network is
// not confident.
func QuadFromBox(b Box) Quad {
	return Quad{
		Points: [4]Point{
			{X: b.X1, Y: b.Y1},
			{X: b.X2, Y: b.Y1},
			{X: b.X2, Y: b.Y2},
			{X: b.X1, Y: b.Y2},
		},
		Confidence: b.Confidence,
	}
}

// CropTransform maps crop-local coordinates back into frame-global space.
// Origin is the crop's top-left corner in the frame; ScaleX/ScaleY convert
// one crop-local unit into frame pixels.
type CropTransform struct {
	OriginX, OriginY float64
	ScaleX, ScaleY   float64
}

// Apply remaps a crop-local point to frame-global coordinates.
func (t CropTransform) Apply(p Point) Point {
	return Point{
		X: t.OriginX + p.X*t.ScaleX,
		Y: t.OriginY + p.Y*t.ScaleY,
	}
}

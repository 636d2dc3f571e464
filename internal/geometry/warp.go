package geometry

import (
	"fmt"
	"image"
)

// WarpQuad resamples the quad region of src into a dstW x dstH grayscale
// image using the inverse homography and bilinear interpolation. Source
// coordinates falling outside the image are clamped to the nearest valid
// pixel so plate edges never pick up artificial black borders.
func WarpQuad(src *image.Gray, quad [4]Point, dstW, dstH int) (*image.Gray, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source image")
	}
	if dstW <= 0 || dstH <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", dstW, dstH)
	}

	// Homography from destination rectangle corners to the source quad,
	// both ordered clockwise from top-left.
	dst := [4]Point{
		{X: 0, Y: 0},
		{X: float64(dstW - 1), Y: 0},
		{X: float64(dstW - 1), Y: float64(dstH - 1)},
		{X: 0, Y: float64(dstH - 1)},
	}
	h, ok := EstimateHomography(dst, quad)
	if !ok {
		return nil, fmt.Errorf("degenerate quad %v", quad)
	}

	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			sx, sy := h.Apply(float64(x), float64(y))
			out.Pix[y*out.Stride+x] = bilinearGray(src, b, sx+float64(b.Min.X), sy+float64(b.Min.Y))
		}
	}
	return out, nil
}

// bilinearGray samples src at (x, y) with bilinear weighting, clamping the
// coordinate to the image bounds first.
func bilinearGray(src *image.Gray, b image.Rectangle, x, y float64) uint8 {
	x = clampf(x, float64(b.Min.X), float64(b.Max.X-1))
	y = clampf(y, float64(b.Min.Y), float64(b.Max.Y-1))

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, b.Max.X-1)
	y1 := min(y0+1, b.Max.Y-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	p00 := float64(src.GrayAt(x0, y0).Y)
	p10 := float64(src.GrayAt(x1, y0).Y)
	p01 := float64(src.GrayAt(x0, y1).Y)
	p11 := float64(src.GrayAt(x1, y1).Y)

	top := p00 + (p10-p00)*fx
	bot := p01 + (p11-p01)*fx
	return uint8(top + (bot-top)*fy + 0.5)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

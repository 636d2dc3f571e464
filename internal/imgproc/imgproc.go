// Package imgproc holds the shared image preprocessing used by the stages:
// deterministic bilinear resizing and [0,1] normalization into arena-backed
// tensor views.
package imgproc

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ResizeGray resizes img to exactly w x h using bilinear filtering. Aspect
// ratio is not preserved; stage inputs are fixed resolutions and the models
// are trained on stretched crops.
func ResizeGray(img *image.Gray, w, h int) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", w, h)
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img, nil
	}
	resized := imaging.Resize(img, w, h, imaging.Linear)
	return toGray(resized), nil
}

// NormalizeInto writes img's pixels into dst as float32 values in [0,1],
// row-major. dst must have exactly width*height elements.
func NormalizeInto(img *image.Gray, dst []float32) error {
	if img == nil {
		return errors.New("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if len(dst) != w*h {
		return fmt.Errorf("buffer length %d does not match %dx%d image", len(dst), w, h)
	}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, p := range row {
			dst[y*w+x] = float32(p) / 255.0
		}
	}
	return nil
}

// CropGray returns the subimage of img covered by the given rectangle,
// clipped to the image bounds.
func CropGray(img *image.Gray, r image.Rectangle) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("empty crop %v", r)
	}
	sub, ok := img.SubImage(r).(*image.Gray)
	if !ok {
		return nil, errors.New("unexpected subimage type")
	}
	return sub, nil
}

func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			// imaging preserves gray levels across channels; take R.
			dst[x] = src[x*4]
		}
	}
	return out
}

// Package frame defines the captured-frame type and the frame source
// contract. Frames are owned by their source; the pipeline borrows one per
// run and must release it exactly once.
package frame

import (
	"errors"
	"image"
	"time"
)

// ErrNoFrame is returned by Acquire when the source has no frame available.
var ErrNoFrame = errors.New("no frame available")

// Frame is a single-channel intensity image captured by the frame source.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Gray returns an image view over the frame's pixel buffer. The view
// aliases the buffer and is only valid while the frame is held.
func (f *Frame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.Pix,
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FromImage converts an image into a freshly allocated grayscale frame.
func FromImage(img image.Image, ts time.Time) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := &Frame{Pix: make([]byte, w*h), Width: w, Height: h, Timestamp: ts}
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			copy(f.Pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return f
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R BT.601 luma weights.
			f.Pix[y*w+x] = uint8((299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000)
		}
	}
	return f
}

// Source supplies frames for the capture loop. Release must be called
// exactly once per acquired frame; sources typically have only one or two
// buffers in flight.
type Source interface {
	Acquire() (*Frame, error)
	Release(*Frame)
}

// Package testutil provides synthetic frames, model assets and stub
// execution engines for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/anpr/internal/frame"
	"github.com/MeKo-Tech/anpr/internal/model"
)

// StubEngine is a scripted execution engine. Its method set satisfies the
// runner's Engine interface.
type StubEngine struct {
	RunFunc func(input []float32, inputShape []int64, output []float32, outputShape []int64) error
	Runs    int
	Closed  bool
}

// Run invokes RunFunc when set; otherwise it zero-fills the output.
func (e *StubEngine) Run(input []float32, inputShape []int64, output []float32, outputShape []int64) error {
	e.Runs++
	if e.RunFunc != nil {
		return e.RunFunc(input, inputShape, output, outputShape)
	}
	for i := range output {
		output[i] = 0
	}
	return nil
}

// Close marks the engine closed.
func (e *StubEngine) Close() error {
	e.Closed = true
	return nil
}

// ConstOutputEngine returns a stub whose every run writes the given values
// into the output view.
func ConstOutputEngine(values []float32) *StubEngine {
	return &StubEngine{
		RunFunc: func(_ []float32, _ []int64, output []float32, _ []int64) error {
			copy(output, values)
			return nil
		},
	}
}

// Asset builds a parsed model asset with the given shapes and a small
// placeholder graph payload.
func Asset(inputShape, outputShape []int64) *model.Asset {
	return &model.Asset{
		Version:     model.SchemaVersion,
		InputShape:  inputShape,
		OutputShape: outputShape,
		Graph:       []byte("stub-graph"),
	}
}

// AssetBytes serializes an asset the way the conversion tooling would.
func AssetBytes(a *model.Asset) []byte {
	var buf bytes.Buffer
	if err := model.Write(&buf, a); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GradientFrame builds a frame with a deterministic intensity gradient.
func GradientFrame(w, h int) *frame.Frame {
	f := &frame.Frame{Pix: make([]byte, w*h), Width: w, Height: h, Timestamp: time.Unix(0, 0)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Pix[y*w+x] = uint8((x*7 + y*13) % 256)
		}
	}
	return f
}

// PlateFrame renders a bright plate-like rectangle with dark text onto a
// mid-gray background, roughly centered in a w x h frame.
func PlateFrame(text string, w, h int) *frame.Frame {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{Y: 90}}, image.Point{}, draw.Src)

	pw, ph := w/2, h/5
	px, py := (w-pw)/2, (h-ph)/2
	plate := image.Rect(px, py, px+pw, py+ph)
	draw.Draw(img, plate, &image.Uniform{color.Gray{Y: 230}}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{color.Gray{Y: 20}},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(px+8, py+ph/2+5),
	}
	d.DrawString(text)

	return frame.FromImage(img, time.Unix(0, 0))
}

// CountingSource wraps a fixed list of frames and records acquire/release
// calls so tests can assert the exactly-once release invariant.
type CountingSource struct {
	Frames   []*frame.Frame
	next     int
	Acquired int
	Released map[*frame.Frame]int
}

// NewCountingSource creates a source over the given frames.
func NewCountingSource(frames ...*frame.Frame) *CountingSource {
	return &CountingSource{Frames: frames, Released: make(map[*frame.Frame]int)}
}

// Acquire hands out the next frame, or frame.ErrNoFrame when exhausted.
func (s *CountingSource) Acquire() (*frame.Frame, error) {
	if s.next >= len(s.Frames) {
		return nil, frame.ErrNoFrame
	}
	f := s.Frames[s.next]
	s.next++
	s.Acquired++
	return f, nil
}

// Release records the release call for the frame.
func (s *CountingSource) Release(f *frame.Frame) {
	s.Released[f]++
}

package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     Box
		wantErr bool
	}{
		{"valid", Box{X1: 10, Y1: 20, X2: 100, Y2: 80, Confidence: 0.9}, false},
		{"inverted x", Box{X1: 100, Y1: 20, X2: 10, Y2: 80, Confidence: 0.9}, true},
		{"inverted y", Box{X1: 10, Y1: 80, X2: 100, Y2: 20, Confidence: 0.9}, true},
		{"zero area", Box{X1: 10, Y1: 20, X2: 10, Y2: 80, Confidence: 0.9}, true},
		{"outside frame", Box{X1: 10, Y1: 20, X2: 400, Y2: 80, Confidence: 0.9}, true},
		{"negative origin", Box{X1: -1, Y1: 20, X2: 100, Y2: 80, Confidence: 0.9}, true},
		{"confidence above one", Box{X1: 10, Y1: 20, X2: 100, Y2: 80, Confidence: 1.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate(320, 240)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoxExpand(t *testing.T) {
	b := Box{X1: 100, Y1: 100, X2: 200, Y2: 150, Confidence: 0.8}
	e := b.Expand(0.1, 320, 240)
	assert.InDelta(t, 90, e.X1, 1e-9)
	assert.InDelta(t, 95, e.Y1, 1e-9)
	assert.InDelta(t, 210, e.X2, 1e-9)
	assert.InDelta(t, 155, e.Y2, 1e-9)
	assert.InDelta(t, 0.8, e.Confidence, 0)
}

func TestBoxExpand_ClampsToFrame(t *testing.T) {
	b := Box{X1: 5, Y1: 5, X2: 315, Y2: 235, Confidence: 0.8}
	e := b.Expand(0.5, 320, 240)
	assert.InDelta(t, 0, e.X1, 0)
	assert.InDelta(t, 0, e.Y1, 0)
	assert.InDelta(t, 320, e.X2, 0)
	assert.InDelta(t, 240, e.Y2, 0)
}

func TestBoxExpand_NegativeMarginIgnored(t *testing.T) {
	b := Box{X1: 10, Y1: 10, X2: 20, Y2: 20}
	assert.Equal(t, b, b.Expand(-1, 320, 240))
}

func TestQuadFromBox(t *testing.T) {
	q := QuadFromBox(Box{X1: 1, Y1: 2, X2: 5, Y2: 8, Confidence: 0.7})
	assert.Equal(t, Point{X: 1, Y: 2}, q.Points[0])
	assert.Equal(t, Point{X: 5, Y: 2}, q.Points[1])
	assert.Equal(t, Point{X: 5, Y: 8}, q.Points[2])
	assert.Equal(t, Point{X: 1, Y: 8}, q.Points[3])
	assert.InDelta(t, 0.7, q.Confidence, 0)
}

func TestCropTransform(t *testing.T) {
	// A 64x64 crop taken at (100, 50) covering 128x32 frame pixels.
	tr := CropTransform{OriginX: 100, OriginY: 50, ScaleX: 2, ScaleY: 0.5}
	p := tr.Apply(Point{X: 32, Y: 32})
	assert.InDelta(t, 164, p.X, 1e-9)
	assert.InDelta(t, 66, p.Y, 1e-9)

	// Crop origin maps to itself.
	p = tr.Apply(Point{})
	assert.InDelta(t, 100, p.X, 0)
	assert.InDelta(t, 50, p.Y, 0)
}

func TestDist(t *testing.T) {
	assert.InDelta(t, 5, Dist(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}), 1e-12)
}

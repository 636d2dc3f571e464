package rectifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/geometry"
	"github.com/MeKo-Tech/anpr/internal/runner"
	"github.com/MeKo-Tech/anpr/internal/testutil"
)

func testConfig() Config {
	return Config{
		InputSize:    16,
		OutputWidth:  32,
		OutputHeight: 16,
		Margin:       0.1,
		Threshold:    0.5,
	}
}

func newStage(t *testing.T, eng *testutil.StubEngine) *Stage {
	t.Helper()
	asset := testutil.Asset([]int64{1, 1, 16, 16}, []int64{1, cornerOutputs})
	r, err := runner.Load("corner", asset, func([]byte, []int64, []int64) (runner.Engine, error) {
		return eng, nil
	})
	require.NoError(t, err)
	s, err := New(testConfig(), r)
	require.NoError(t, err)
	return s
}

func newArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, err := arena.New(1 << 14)
	require.NoError(t, err)
	return a
}

func TestRun_OutputResolutionFixed(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.1, 0.1, 0.9, 0.15, 0.88, 0.9, 0.12, 0.85, 0.8,
	})
	s := newStage(t, eng)
	f := testutil.GradientFrame(320, 240)

	boxes := []geometry.Box{
		{X1: 50, Y1: 60, X2: 250, Y2: 160, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 320, Y2: 240, Confidence: 0.9},
		{X1: 310, Y1: 230, X2: 320, Y2: 240, Confidence: 0.9},
		{X1: 0.5, Y1: 0.5, X2: 2, Y2: 2, Confidence: 0.9},
	}
	for _, box := range boxes {
		res, err := s.Run(newArena(t), f, box)
		require.NoError(t, err)
		b := res.Image.Bounds()
		assert.Equal(t, 32, b.Dx())
		assert.Equal(t, 16, b.Dy())
	}
}

func TestRun_CornersRemappedToFrame(t *testing.T) {
	// Corner net reports the full crop extent.
	eng := testutil.ConstOutputEngine([]float32{
		0, 0, 1, 0, 1, 1, 0, 1, 0.9,
	})
	s := newStage(t, eng)
	f := testutil.GradientFrame(320, 240)

	box := geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 150, Confidence: 0.9}
	res, err := s.Run(newArena(t), f, box)
	require.NoError(t, err)
	assert.False(t, res.Fallback)

	// Crop is the box expanded by 10%: (90,95)-(210,155).
	assert.InDelta(t, 90, res.Quad.Points[0].X, 1.0)
	assert.InDelta(t, 95, res.Quad.Points[0].Y, 1.0)
	assert.InDelta(t, 210, res.Quad.Points[2].X, 1.0)
	assert.InDelta(t, 155, res.Quad.Points[2].Y, 1.0)
	assert.InDelta(t, 0.9, res.Quad.Confidence, 1e-6)
}

func TestRun_LowConfidenceFallsBackToBox(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.2, 0.2, 0.8, 0.2, 0.8, 0.8, 0.2, 0.8, 0.2,
	})
	s := newStage(t, eng)
	f := testutil.GradientFrame(320, 240)

	box := geometry.Box{X1: 40, Y1: 50, X2: 160, Y2: 110, Confidence: 0.8}
	res, err := s.Run(newArena(t), f, box)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, geometry.QuadFromBox(box).Points, res.Quad.Points)

	b := res.Image.Bounds()
	assert.Equal(t, 32, b.Dx())
	assert.Equal(t, 16, b.Dy())
}

func TestRun_InvalidBox(t *testing.T) {
	s := newStage(t, &testutil.StubEngine{})
	f := testutil.GradientFrame(320, 240)
	_, err := s.Run(newArena(t), f, geometry.Box{X1: 10, Y1: 10, X2: 5, Y2: 20})
	assert.Error(t, err)
}

func TestRun_InferenceError(t *testing.T) {
	eng := &testutil.StubEngine{
		RunFunc: func([]float32, []int64, []float32, []int64) error {
			return errors.New("unsupported operator")
		},
	}
	s := newStage(t, eng)
	f := testutil.GradientFrame(320, 240)

	_, err := s.Run(newArena(t), f, geometry.Box{X1: 10, Y1: 10, X2: 100, Y2: 60, Confidence: 0.9})
	var infErr *runner.InferenceError
	assert.ErrorAs(t, err, &infErr)
}

func TestNew_Validation(t *testing.T) {
	asset := testutil.Asset([]int64{1, 1, 16, 16}, []int64{1, cornerOutputs})
	r, err := runner.Load("corner", asset, func([]byte, []int64, []int64) (runner.Engine, error) {
		return &testutil.StubEngine{}, nil
	})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.InputSize = 0
	_, err = New(cfg, r)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.OutputWidth = 0
	_, err = New(cfg, r)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Threshold = 2
	_, err = New(cfg, r)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.InputSize = 64 // mismatched with asset
	_, err = New(cfg, r)
	assert.Error(t, err)
}

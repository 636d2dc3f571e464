package detect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/runner"
	"github.com/MeKo-Tech/anpr/internal/testutil"
)

func testConfig() Config {
	return Config{InputWidth: 32, InputHeight: 32, Threshold: 0.5}
}

func newStage(t *testing.T, eng *testutil.StubEngine, candidates int) *Stage {
	t.Helper()
	asset := testutil.Asset(
		[]int64{1, 1, 32, 32},
		[]int64{1, int64(candidates), candidateFields},
	)
	r, err := runner.Load("detection", asset, func([]byte, []int64, []int64) (runner.Engine, error) {
		return eng, nil
	})
	require.NoError(t, err)
	s, err := New(testConfig(), r)
	require.NoError(t, err)
	return s
}

func newArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, err := arena.New(1 << 16)
	require.NoError(t, err)
	return a
}

func TestRun_PicksHighestConfidence(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.1, 0.1, 0.3, 0.3, 0.60,
		0.2, 0.4, 0.8, 0.7, 0.95,
	})
	s := newStage(t, eng, 2)

	f := testutil.GradientFrame(320, 240)
	box, ok, err := s.Run(newArena(t), f)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 64, box.X1, 1e-4)   // 0.2 * 320
	assert.InDelta(t, 96, box.Y1, 1e-4)   // 0.4 * 240
	assert.InDelta(t, 256, box.X2, 1e-4)  // 0.8 * 320
	assert.InDelta(t, 168, box.Y2, 1e-4)  // 0.7 * 240
	assert.InDelta(t, 0.95, box.Confidence, 1e-6)
	assert.NoError(t, box.Validate(320, 240))
}

func TestRun_BelowThresholdNotFound(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.2, 0.2, 0.6, 0.6, 0.3,
	})
	s := newStage(t, eng, 1)

	box, ok, err := s.Run(newArena(t), testutil.GradientFrame(320, 240))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 0.3, box.Confidence, 1e-6)
}

func TestRun_SkipsDegenerateCandidates(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.5, 0.5, 0.5, 0.5, 0.99, // zero area, must be skipped
		0.1, 0.1, 0.4, 0.4, 0.7,
	})
	s := newStage(t, eng, 2)

	box, ok, err := s.Run(newArena(t), testutil.GradientFrame(320, 240))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.7, box.Confidence, 1e-6)
}

func TestRun_NoValidCandidates(t *testing.T) {
	eng := testutil.ConstOutputEngine([]float32{
		0.9, 0.9, 0.1, 0.1, 0.99, // inverted
	})
	s := newStage(t, eng, 1)

	_, ok, err := s.Run(newArena(t), testutil.GradientFrame(320, 240))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_NormalizesInputToUnitRange(t *testing.T) {
	var seen []float32
	eng := &testutil.StubEngine{
		RunFunc: func(input []float32, _ []int64, output []float32, _ []int64) error {
			seen = append([]float32(nil), input...)
			copy(output, []float32{0.1, 0.1, 0.9, 0.9, 0.9})
			return nil
		},
	}
	s := newStage(t, eng, 1)

	_, _, err := s.Run(newArena(t), testutil.GradientFrame(320, 240))
	require.NoError(t, err)
	require.Len(t, seen, 32*32)
	for _, v := range seen {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestRun_InferenceError(t *testing.T) {
	eng := &testutil.StubEngine{
		RunFunc: func([]float32, []int64, []float32, []int64) error {
			return errors.New("malformed graph")
		},
	}
	s := newStage(t, eng, 1)

	_, _, err := s.Run(newArena(t), testutil.GradientFrame(320, 240))
	var infErr *runner.InferenceError
	assert.ErrorAs(t, err, &infErr)
}

func TestNew_Validation(t *testing.T) {
	asset := testutil.Asset([]int64{1, 1, 32, 32}, []int64{1, 1, candidateFields})
	r, err := runner.Load("detection", asset, func([]byte, []int64, []int64) (runner.Engine, error) {
		return &testutil.StubEngine{}, nil
	})
	require.NoError(t, err)

	_, err = New(Config{InputWidth: 0, InputHeight: 32, Threshold: 0.5}, r)
	assert.Error(t, err)
	_, err = New(Config{InputWidth: 32, InputHeight: 32, Threshold: 1.5}, r)
	assert.Error(t, err)
	_, err = New(Config{InputWidth: 64, InputHeight: 64, Threshold: 0.5}, r)
	assert.Error(t, err) // shape mismatch
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 320, cfg.InputWidth)
	assert.Equal(t, 320, cfg.InputHeight)
	assert.InDelta(t, 0.5, cfg.Threshold, 0)
}

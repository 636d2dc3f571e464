package ctc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridFromLabels builds a row-stochastic grid whose argmax at timestep t is
// labels[t], with the given peak probability.
func gridFromLabels(labels []int, classes int, peak float32) []float32 {
	rest := (1 - peak) / float32(classes-1)
	grid := make([]float32, len(labels)*classes)
	for t, cls := range labels {
		for c := 0; c < classes; c++ {
			if c == cls {
				grid[t*classes+c] = peak
			} else {
				grid[t*classes+c] = rest
			}
		}
	}
	return grid
}

func abAlphabet(t *testing.T) *Alphabet {
	t.Helper()
	ab, err := NewAlphabet("AB")
	require.NoError(t, err)
	return ab
}

func TestDecodeGreedy_BlankSeparated(t *testing.T) {
	ab := abAlphabet(t)
	labels := []int{0, 1, 1, 0, 2, 2, 0}
	dec, err := DecodeGreedy(gridFromLabels(labels, ab.Classes(), 0.9), len(labels), ab)
	require.NoError(t, err)
	assert.Equal(t, "AB", dec.Text)
	require.Len(t, dec.CharProbs, 2)
	assert.InDelta(t, 0.9, dec.CharProbs[0], 1e-6)
	assert.InDelta(t, 0.9, dec.CharProbs[1], 1e-6)
}

func TestDecodeGreedy_RepeatCollapses(t *testing.T) {
	ab := abAlphabet(t)
	labels := []int{1, 1, 1}
	dec, err := DecodeGreedy(gridFromLabels(labels, ab.Classes(), 0.8), len(labels), ab)
	require.NoError(t, err)
	assert.Equal(t, "A", dec.Text)
}

func TestDecodeGreedy_BlankBreaksRepeat(t *testing.T) {
	ab := abAlphabet(t)
	labels := []int{1, 0, 1}
	dec, err := DecodeGreedy(gridFromLabels(labels, ab.Classes(), 0.8), len(labels), ab)
	require.NoError(t, err)
	assert.Equal(t, "AA", dec.Text)
	assert.Len(t, dec.CharProbs, 2)
}

func TestDecodeGreedy_AllBlank(t *testing.T) {
	ab := abAlphabet(t)
	labels := []int{0, 0, 0, 0}
	dec, err := DecodeGreedy(gridFromLabels(labels, ab.Classes(), 0.99), len(labels), ab)
	require.NoError(t, err)
	assert.Empty(t, dec.Text)
	assert.Empty(t, dec.CharProbs)
	assert.InDelta(t, 0, dec.Confidence(), 0)
}

func TestDecodeGreedy_IdempotentOnCollapsedText(t *testing.T) {
	ab, err := NewAlphabet("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	require.NoError(t, err)

	// Re-encode an already collapsed string as a trivial one-class-per-step
	// grid: decoding must return it unchanged.
	text := "B727AB"
	labels := make([]int, 0, len(text))
	prev := -1
	for _, r := range text {
		cls := indexOfRune(ab, r)
		require.Positive(t, cls)
		if cls == prev {
			// Identical neighbours need a separating blank to survive.
			labels = append(labels, Blank)
		}
		labels = append(labels, cls)
		prev = cls
	}
	dec, err := DecodeGreedy(gridFromLabels(labels, ab.Classes(), 0.95), len(labels), ab)
	require.NoError(t, err)
	assert.Equal(t, text, dec.Text)
}

func TestDecodeGreedy_LogitsFallback(t *testing.T) {
	ab := abAlphabet(t)
	// Unnormalized rows are treated as logits; argmax and ordering must hold.
	grid := []float32{
		-1, 4, 0, // 'A'
		5, -2, 1, // blank
		0, 1, 6, // 'B'
	}
	dec, err := DecodeGreedy(grid, 3, ab)
	require.NoError(t, err)
	assert.Equal(t, "AB", dec.Text)
	for _, p := range dec.CharProbs {
		assert.Greater(t, p, 0.5)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestDecodeGreedy_Errors(t *testing.T) {
	ab := abAlphabet(t)
	_, err := DecodeGreedy(nil, 0, ab)
	assert.Error(t, err)
	_, err = DecodeGreedy(make([]float32, 5), 2, ab)
	assert.Error(t, err)
	_, err = DecodeGreedy(make([]float32, 6), 2, nil)
	assert.Error(t, err)
}

func TestConfidence(t *testing.T) {
	d := Decoded{Text: "AB", CharProbs: []float64{0.9, 0.7}}
	assert.InDelta(t, 0.8, d.Confidence(), 1e-9)
}

func indexOfRune(ab *Alphabet, r rune) int {
	for cls := 1; cls <= ab.Size(); cls++ {
		if c, ok := ab.Rune(cls); ok && c == r {
			return cls
		}
	}
	return -1
}

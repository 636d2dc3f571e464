package ctc

import (
	"fmt"
	"math"
)

// Decoded is the result of collapsing one probability grid.
type Decoded struct {
	Text      string
	CharProbs []float64
}

// Confidence returns the average of the per-character probabilities; 0 for
// an empty decode.
func (d Decoded) Confidence() float64 {
	if len(d.CharProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range d.CharProbs {
		s += p
	}
	return s / float64(len(d.CharProbs))
}

// argmax returns index of max value and the value.
func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// probOfIndex returns the probability of v[idx] among v. Rows that already
// sum to one are taken as-is; anything else is treated as logits and pushed
// through a stable softmax.
func probOfIndex(v []float32, idx int) float64 {
	if len(v) == 0 || idx < 0 || idx >= len(v) {
		return 0
	}
	var sum float64
	minV, maxV := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
	}
	if sum > 0.99 && sum < 1.01 && minV >= 0 && maxV <= 1 {
		return float64(v[idx])
	}
	m := maxV
	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - m))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(v[idx]-m)) / denom
}

// DecodeGreedy collapses a T x classes probability grid into text. grid is
// row-major with classes contiguous per timestep; classes must equal
// alphabet.Classes(). A repeated class is emitted only once unless a blank
// separates the repetitions.
func DecodeGreedy(grid []float32, timesteps int, alphabet *Alphabet) (Decoded, error) {
	if alphabet == nil {
		return Decoded{}, fmt.Errorf("nil alphabet")
	}
	classes := alphabet.Classes()
	if timesteps <= 0 {
		return Decoded{}, fmt.Errorf("invalid timestep count %d", timesteps)
	}
	if len(grid) != timesteps*classes {
		return Decoded{}, fmt.Errorf("grid length %d does not match %d timesteps x %d classes",
			len(grid), timesteps, classes)
	}

	out := make([]rune, 0, timesteps)
	probs := make([]float64, 0, timesteps)
	prev := -1
	for t := 0; t < timesteps; t++ {
		row := grid[t*classes : (t+1)*classes]
		cls, _ := argmax(row)
		if cls == Blank {
			prev = Blank
			continue
		}
		if cls == prev {
			continue
		}
		r, ok := alphabet.Rune(cls)
		if !ok {
			return Decoded{}, fmt.Errorf("class %d outside alphabet of %d characters", cls, alphabet.Size())
		}
		out = append(out, r)
		probs = append(probs, probOfIndex(row, cls))
		prev = cls
	}
	return Decoded{Text: string(out), CharProbs: probs}, nil
}

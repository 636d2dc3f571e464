package pipeline

import (
	"time"

	"github.com/MeKo-Tech/anpr/internal/geometry"
)

// Outcome classifies one pipeline run.
type Outcome string

const (
	// OutcomeRecognized means all three stages completed and produced text.
	OutcomeRecognized Outcome = "recognized"
	// OutcomeNotFound means confidence gating stopped the pipeline early.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeError means a stage failed; the frame was abandoned.
	OutcomeError Outcome = "error"
)

// Stage names used in results and metrics.
const (
	StageDetect    = "detect"
	StageRectify   = "rectify"
	StageRecognize = "recognize"
)

// Timing holds per-stage and total wall-clock durations for one frame.
type Timing struct {
	DetectNs    int64 `json:"detect_ns"`
	RectifyNs   int64 `json:"rectify_ns"`
	RecognizeNs int64 `json:"recognize_ns"`
	TotalNs     int64 `json:"total_ns"`
}

// Result is the terminal output of one pipeline run over a single frame.
type Result struct {
	Outcome Outcome `json:"outcome"`
	// Stage that stopped the pipeline; empty on success.
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Recognition output, present when Outcome is OutcomeRecognized.
	Text            string    `json:"text,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	CharConfidences []float64 `json:"char_confidences,omitempty"`

	// Geometry from the earlier stages, when they ran.
	Box           *geometry.Box  `json:"box,omitempty"`
	Quad          *geometry.Quad `json:"quad,omitempty"`
	QuadFallback  bool           `json:"quad_fallback,omitempty"`
	FrameCaptured time.Time      `json:"frame_captured"`

	Timing Timing `json:"timing"`
}

// Recognized reports whether the run produced text.
func (r *Result) Recognized() bool { return r.Outcome == OutcomeRecognized }

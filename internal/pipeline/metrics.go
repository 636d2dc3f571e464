package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anpr_frames_total",
			Help: "Total number of processed frames by outcome",
		},
		[]string{"outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anpr_stage_duration_seconds",
			Help:    "Per-stage processing duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"stage"},
	)

	frameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anpr_frame_duration_seconds",
			Help:    "End-to-end frame processing duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	plateLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anpr_plate_text_length",
			Help:    "Number of characters on recognized plates",
			Buckets: []float64{0, 2, 4, 6, 8, 10, 12},
		},
	)
)

// recordMetrics updates the Prometheus series for one finished frame.
func recordMetrics(res *Result) {
	framesTotal.WithLabelValues(string(res.Outcome)).Inc()
	frameDuration.Observe(float64(res.Timing.TotalNs) / 1e9)
	if res.Timing.DetectNs > 0 {
		stageDuration.WithLabelValues(StageDetect).Observe(float64(res.Timing.DetectNs) / 1e9)
	}
	if res.Timing.RectifyNs > 0 {
		stageDuration.WithLabelValues(StageRectify).Observe(float64(res.Timing.RectifyNs) / 1e9)
	}
	if res.Timing.RecognizeNs > 0 {
		stageDuration.WithLabelValues(StageRecognize).Observe(float64(res.Timing.RecognizeNs) / 1e9)
	}
	if res.Recognized() {
		plateLength.Observe(float64(len([]rune(res.Text))))
	}
}

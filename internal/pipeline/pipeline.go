// Package pipeline sequences the three recognition stages over captured
// frames: detect the plate, rectify its perspective, recognize the
// characters. One frame is fully processed before the next is acquired;
// the shared arena is rebound per stage in strict order.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/common"
	"github.com/MeKo-Tech/anpr/internal/ctc"
	"github.com/MeKo-Tech/anpr/internal/detect"
	"github.com/MeKo-Tech/anpr/internal/frame"
	"github.com/MeKo-Tech/anpr/internal/model"
	"github.com/MeKo-Tech/anpr/internal/recognize"
	"github.com/MeKo-Tech/anpr/internal/rectifier"
	"github.com/MeKo-Tech/anpr/internal/runner"
)

// Config aggregates the pipeline and per-stage settings.
type Config struct {
	ArenaSize        int    // shared tensor arena capacity in bytes
	Alphabet         string // ordered character set, blank implied at index 0
	WarmupIterations int    // warmup invocations per model at startup

	Detect    detect.Config
	Rectify   rectifier.Config
	Recognize recognize.Config
}

// DefaultConfig mirrors the deployed device configuration.
func DefaultConfig() Config {
	return Config{
		ArenaSize:        1 << 20,
		Alphabet:         "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		WarmupIterations: 0,
		Detect:           detect.DefaultConfig(),
		Rectify:          rectifier.DefaultConfig(),
		Recognize:        recognize.DefaultConfig(),
	}
}

// Assets bundles the three model assets supplied by the conversion
// collaborator.
type Assets struct {
	Detection *model.Asset
	Corner    *model.Asset
	OCR       *model.Asset
}

// Pipeline orchestrates the three stages and owns the shared arena.
type Pipeline struct {
	arena     *arena.Arena
	detect    *detect.Stage
	rectify   *rectifier.Stage
	recognize *recognize.Stage

	detectRunner *runner.Runner
	cornerRunner *runner.Runner
	ocrRunner    *runner.Runner
}

// New builds the pipeline: loads the three models, sizes the arena, and
// wires the stages. Any failure here is fatal; without its models no stage
// is usable.
func New(cfg Config, assets Assets, newEngine runner.EngineFactory) (*Pipeline, error) {
	a, err := arena.New(cfg.ArenaSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline arena: %w", err)
	}
	alphabet, err := ctc.NewAlphabet(cfg.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("pipeline alphabet: %w", err)
	}

	detRunner, err := runner.Load("detection", assets.Detection, newEngine)
	if err != nil {
		return nil, err
	}
	cornerRunner, err := runner.Load("corner", assets.Corner, newEngine)
	if err != nil {
		return nil, err
	}
	ocrRunner, err := runner.Load("ocr", assets.OCR, newEngine)
	if err != nil {
		return nil, err
	}

	detStage, err := detect.New(cfg.Detect, detRunner)
	if err != nil {
		return nil, err
	}
	recStage, err := rectifier.New(cfg.Rectify, cornerRunner)
	if err != nil {
		return nil, err
	}
	ocrStage, err := recognize.New(cfg.Recognize, ocrRunner, alphabet)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		arena:        a,
		detect:       detStage,
		rectify:      recStage,
		recognize:    ocrStage,
		detectRunner: detRunner,
		cornerRunner: cornerRunner,
		ocrRunner:    ocrRunner,
	}

	// Every model must fit its tensors in the arena before the first frame;
	// an undersized arena is fatal here, not a per-frame error.
	for _, r := range []*runner.Runner{detRunner, cornerRunner, ocrRunner} {
		if err := r.Bind(a); err != nil {
			return nil, err
		}
		if err := r.Warmup(a, cfg.WarmupIterations); err != nil {
			return nil, err
		}
	}

	slog.Info("pipeline ready",
		"arena_bytes", a.Size(),
		"alphabet_size", alphabet.Size(),
		"ocr_timesteps", ocrStage.Timesteps(),
		"warmup_iterations", cfg.WarmupIterations)
	return p, nil
}

// ProcessFrame runs the full state machine over one borrowed frame. The
// caller keeps ownership of the frame; ProcessFrame never releases it.
// Stage failures are folded into the result, not returned.
func (p *Pipeline) ProcessFrame(f *frame.Frame) *Result {
	res := &Result{FrameCaptured: f.Timestamp}
	total := common.StartTimer("frame")
	defer func() {
		res.Timing.TotalNs = total.Stop().Nanoseconds()
		p.observe(res)
	}()

	// Detecting.
	t := common.StartTimer(StageDetect)
	box, found, err := p.detect.Run(p.arena, f)
	res.Timing.DetectNs = t.Stop().Nanoseconds()
	if err != nil {
		return res.fail(StageDetect, err)
	}
	if !found {
		return res.notFound(StageDetect, fmt.Sprintf("detection confidence %.3f below threshold %.3f",
			box.Confidence, p.detect.Threshold()))
	}
	res.Box = &box

	// Rectifying.
	t = common.StartTimer(StageRectify)
	rect, err := p.rectify.Run(p.arena, f, box)
	res.Timing.RectifyNs = t.Stop().Nanoseconds()
	if err != nil {
		return res.fail(StageRectify, err)
	}
	res.Quad = &rect.Quad
	res.QuadFallback = rect.Fallback

	// Recognizing.
	t = common.StartTimer(StageRecognize)
	dec, err := p.recognize.Run(p.arena, rect.Image)
	res.Timing.RecognizeNs = t.Stop().Nanoseconds()
	if err != nil {
		return res.fail(StageRecognize, err)
	}

	res.Outcome = OutcomeRecognized
	res.Text = dec.Text
	res.Confidence = dec.Confidence()
	res.CharConfidences = dec.CharProbs
	return res
}

func (r *Result) fail(stage string, err error) *Result {
	r.Outcome = OutcomeError
	r.Stage = stage
	r.Reason = err.Error()
	return r
}

func (r *Result) notFound(stage, reason string) *Result {
	r.Outcome = OutcomeNotFound
	r.Stage = stage
	r.Reason = reason
	return r
}

// observe emits the per-frame structured record and updates metrics.
func (p *Pipeline) observe(res *Result) {
	recordMetrics(res)
	switch res.Outcome {
	case OutcomeRecognized:
		slog.Info("frame recognized",
			"text", res.Text,
			"confidence", res.Confidence,
			"quad_fallback", res.QuadFallback,
			"detect_ns", res.Timing.DetectNs,
			"rectify_ns", res.Timing.RectifyNs,
			"recognize_ns", res.Timing.RecognizeNs,
			"total_ns", res.Timing.TotalNs)
	case OutcomeNotFound:
		slog.Info("frame without plate",
			"stage", res.Stage,
			"reason", res.Reason,
			"total_ns", res.Timing.TotalNs)
	case OutcomeError:
		slog.Error("frame failed",
			"stage", res.Stage,
			"reason", res.Reason,
			"total_ns", res.Timing.TotalNs)
	}
}

// Close releases the stage runners. The arena is plain memory and needs no
// teardown.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, r := range []*runner.Runner{p.detectRunner, p.cornerRunner, p.ocrRunner} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

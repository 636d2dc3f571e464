package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/anpr/internal/frame"
)

// ProcessNext acquires one frame from the source, runs the pipeline over
// it, and releases it exactly once, on every exit path. Acquisition errors
// (including frame.ErrNoFrame) are returned unwrapped.
func (p *Pipeline) ProcessNext(src frame.Source) (*Result, error) {
	f, err := src.Acquire()
	if err != nil {
		return nil, err
	}
	released := false
	defer func() {
		if !released {
			src.Release(f)
		}
	}()

	res := p.ProcessFrame(f)
	released = true
	src.Release(f)
	return res, nil
}

// Run processes frames until the context is canceled or the source is
// exhausted. Per-frame inference failures are folded into results and
// never stop the loop; acquisition failures other than exhaustion are
// logged and skipped.
func (p *Pipeline) Run(ctx context.Context, src frame.Source, sink func(*Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := p.ProcessNext(src)
		if errors.Is(err, frame.ErrNoFrame) {
			return nil
		}
		if err != nil {
			slog.Warn("frame acquisition failed", "error", err)
			continue
		}
		if sink != nil {
			sink(res)
		}
	}
}

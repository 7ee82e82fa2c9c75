package sonny

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Options are the optional parts of a render.
type Options struct {
	Logger   *slog.Logger
	Progress func(done, total int) // called after each window
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Render evaluates the output chain of reg from s.Start to the end time,
// one window at a time. Each window after the first is evaluated with up to
// s.BufferSize preceding samples, which are then dropped. The context is
// checked between windows.
func Render(ctx context.Context, reg *Registry, s Settings, opts Options) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	name, ok := reg.Output()
	if !ok {
		return nil, newError(ErrNoOutputChain, "mark one chain to play")
	}
	log := opts.Logger
	if log == nil {
		log = discard
	}
	end := s.End
	if end == 0 {
		end = reg.EndTime()
	}
	if s.MaxDuration > 0 && end-s.Start > s.MaxDuration {
		return nil, newError(ErrTooLong, "%gs from %gs, at most %gs", end-s.Start, s.Start, s.MaxDuration)
	}
	total := max(0, int((end-s.Start)*s.SampleRate))

	began := time.Now()
	ev := NewEvaluator(reg, s.Workers, s.MaxDepth)
	out := make([]float64, total)
	windows := 0
	for off := 0; off < total; off += s.WindowSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf := min(s.BufferSize, off)
		w := Window{
			Start:      s.Start,
			Offset:     off - buf,
			Size:       min(s.WindowSize, total-off),
			Buffer:     buf,
			SampleRate: s.SampleRate,
		}
		col, err := ev.EvaluateChain(ctx, name, nil, w)
		if err != nil {
			return nil, err
		}
		for k := range w.Size {
			out[off+k] = col[buf+k].Float()
		}
		windows++
		log.Debug("window",
			slog.Int("window", windows-1),
			slog.Int("offset", off),
			slog.Int("samples", w.Size))
		if opts.Progress != nil {
			opts.Progress(off+w.Size, total)
		}
	}
	log.Info("rendered",
		slog.String("chain", name.String()),
		slog.Int("samples", total),
		slog.Int("windows", windows),
		slog.Duration("elapsed", time.Since(began)))
	return out, nil
}

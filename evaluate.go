package sonny

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Column holds one Value per sample of a window, buffer samples first.
type Column []Value

// Window is a block of samples evaluated together.
type Window struct {
	Start      float64 // seconds at global sample 0
	Offset     int     // global index of the first sample, buffer included
	Size       int
	Buffer     int
	SampleRate float64
}

// Len is the number of samples evaluated, buffer included.
func (w Window) Len() int { return w.Size + w.Buffer }

// Time of sample k. Computed from the global index so the same sample has
// the same time whichever window it falls in.
func (w Window) Time(k int) float64 {
	return w.Start + float64(w.Offset+k)/w.SampleRate
}

// minChunk is the fewest samples handed to one worker
const minChunk = 64

// Evaluator evaluates chains of a Registry over windows. It holds no
// mutable state and may be shared.
type Evaluator struct {
	reg      *Registry
	workers  int
	maxDepth int
}

func NewEvaluator(reg *Registry, workers, maxDepth int) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Evaluator{reg: reg, workers: workers, maxDepth: maxDepth}
}

// call is the context of one chain invocation.
type call struct {
	ctx   context.Context
	args  []Column // local results most recent first, then the caller's
	w     Window
	depth int
}

// EvaluateChain evaluates the named chain over w. Generic chains run their
// links in order; link i sees the results of links i-1 down to 0, followed
// by args. The result is the last link's.
func (ev *Evaluator) EvaluateChain(ctx context.Context, name ChainName, args []Column, w Window) (Column, error) {
	return ev.chain(ctx, name, args, w, 0)
}

func (ev *Evaluator) chain(ctx context.Context, name ChainName, args []Column, w Window, depth int) (Column, error) {
	if depth >= ev.maxDepth {
		return nil, newError(ErrRecursion, "%s nested more than %d deep", name.Describe(), ev.maxDepth)
	}
	c, ok := ev.reg.chains[name]
	if !ok {
		return nil, newError(ErrChainNotFound, "%s", name.Describe())
	}
	if c.IsNotes() {
		return ev.notes(ctx, c, w)
	}
	results := make([]Column, 0, len(c.Links))
	for i, e := range c.Links {
		visible := make([]Column, 0, len(results)+len(args))
		for j := len(results) - 1; j >= 0; j-- {
			visible = append(visible, results[j])
		}
		visible = append(visible, args...)
		x := &call{ctx: ctx, args: visible, w: w, depth: depth}
		col, err := ev.expression(x, e)
		if err != nil {
			return nil, locate(err, c.Name, i, e.Location)
		}
		results = append(results, col)
	}
	return results[len(results)-1], nil
}

// notes gives the pitch of the active note at each sample, or 0.
func (ev *Evaluator) notes(ctx context.Context, c *Chain, w Window) (Column, error) {
	out := make(Column, w.Len())
	err := ev.parallel(ctx, len(out), func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			n, found, err := ev.reg.findNote(c.Timeline, w.Time(k), 0)
			switch {
			case err != nil:
				return locate(err, c.Name, -1, c.Location)
			case found:
				out[k] = n.Value()
			default:
				out[k] = zero
			}
		}
		return nil
	})
	return out, err
}

func (ev *Evaluator) expression(x *call, e *Expression) (Column, error) {
	op := operators[e.Op]
	cols := make([]Column, len(e.Operands))
	for i := range e.Operands {
		col, err := ev.operand(x, &e.Operands[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	switch {
	case e.Op == OpValue:
		return cols[0], nil
	case op.window:
		return ev.fft(cols[0], x.w)
	}
	out := make(Column, x.w.Len())
	err := ev.parallel(x.ctx, len(out), func(lo, hi int) error {
		in := make([]Value, len(cols))
		for k := lo; k < hi; k++ {
			for j, col := range cols {
				in[j] = col[k]
			}
			v, err := op.apply(in)
			if err != nil {
				return err
			}
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (ev *Evaluator) operand(x *call, o *Operand) (Column, error) {
	w := x.w
	switch o.Kind {
	case KindVar:
		return fill(w.Len(), o.Value), nil
	case KindID:
		return ev.chain(x.ctx, o.Chain, x.args, w, x.depth+1)
	case KindProperty:
		return ev.property(x, o)
	case KindBackLink:
		if o.Back < 1 || o.Back > len(x.args) {
			err := newError(ErrBackLinkOutOfRange, "!%d", o.Back)
			err.Expected, err.Available = o.Back, len(x.args)
			return nil, err
		}
		return x.args[o.Back-1], nil
	case KindTime:
		return ev.perSample(x, func(k int) Value { return Number(w.Time(k)) })
	case KindSampleRate:
		return fill(w.Len(), Number(w.SampleRate)), nil
	case KindWindowSize:
		return fill(w.Len(), Number(float64(w.Size))), nil
	case KindBufferSize:
		return fill(w.Len(), Number(float64(w.Buffer))), nil
	case KindWindowIndex:
		return ev.perSample(x, func(k int) Value { return Number(float64(k)) })
	case KindNotes:
		return ev.perSample(x, func(k int) Value {
			t := w.Time(k)
			for _, n := range o.Notes {
				if n.Period.Contains(t) {
					return n.Value()
				}
			}
			return zero
		})
	case KindExpression:
		return ev.expression(x, o.Expr)
	case KindArray:
		items := make([]Column, len(o.Items))
		for i, e := range o.Items {
			col, err := ev.expression(x, e)
			if err != nil {
				return nil, err
			}
			items[i] = col
		}
		return ev.perSample(x, func(k int) Value {
			v := make([]Value, len(items))
			for i, col := range items {
				v[i] = col[k]
			}
			return Array(v...)
		})
	}
	return nil, newError(ErrShape, "unknown operand kind %d", o.Kind)
}

// property gives a property of the note active at each sample, or 0.
func (ev *Evaluator) property(x *call, o *Operand) (Column, error) {
	c, ok := ev.reg.chains[o.Chain]
	if !ok {
		return nil, newError(ErrChainNotFound, "%s", o.Chain.Describe())
	}
	if !c.IsNotes() {
		return nil, newError(ErrPropertyOfGenericChain, "%s has no property '%s'", c.Name.Describe(), o.Property)
	}
	out := make(Column, x.w.Len())
	err := ev.parallel(x.ctx, len(out), func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			n, found, err := ev.reg.findNote(c.Timeline, x.w.Time(k), 0)
			if err != nil {
				return err
			}
			if !found {
				out[k] = zero
				continue
			}
			p := n.Period
			switch o.Property {
			case PropStart:
				out[k] = Number(p.Start)
			case PropEnd:
				out[k] = Number(p.End)
			case PropDuration:
				out[k] = Number(p.Duration())
			case PropAll:
				out[k] = Array(n.Value(), Number(p.Start), Number(p.End), Number(p.Duration()))
			}
		}
		return nil
	})
	return out, err
}

func (ev *Evaluator) perSample(x *call, f func(k int) Value) (Column, error) {
	out := make(Column, x.w.Len())
	err := ev.parallel(x.ctx, len(out), func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			out[k] = f(k)
		}
		return nil
	})
	return out, err
}

func fill(n int, v Value) Column {
	out := make(Column, n)
	for k := range out {
		out[k] = v
	}
	return out
}

// parallel runs f over [0, n) split into chunks across the worker pool.
// The error of the lowest failing chunk is returned, so the reported error
// does not depend on scheduling.
func (ev *Evaluator) parallel(ctx context.Context, n int, f func(lo, hi int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunk := max(minChunk, (n+ev.workers-1)/ev.workers)
	if ev.workers == 1 || n <= chunk {
		return f(0, n)
	}
	errs := make([]error, (n+chunk-1)/chunk)
	var g errgroup.Group
	g.SetLimit(ev.workers)
	for i := range errs {
		lo, hi := i*chunk, min((i+1)*chunk, n)
		g.Go(func() error {
			errs[i] = f(lo, hi)
			return nil
		})
	}
	g.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

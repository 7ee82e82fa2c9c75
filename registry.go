package sonny

import (
	"sort"
	"strings"
)

// Registry holds finalized chains. It is read only, so it is shared by all
// evaluation workers without locking.
type Registry struct {
	chains    map[ChainName]*Chain
	order     []ChainName
	need      map[ChainName]int // caller arguments each chain reads
	output    ChainName
	hasOutput bool
	endTime   float64
	tempo     float64
}

// Registry finishes the build and checks the program before anything is
// evaluated: every identifier resolves, properties are only taken from note
// chains, there is at most one output chain, the output chain does not
// invoke itself, and no backlink reaches past the arguments it can get.
// The Builder must not be used afterwards.
func (b *Builder) Registry() (*Registry, error) {
	if n := len(b.open); n > 0 {
		c := b.open[n-1]
		return nil, newError(ErrUnclosedChain, "%s", c.Name.Describe()).at(c.Location)
	}
	for _, p := range b.pending {
		c, ok := resolveIn(b.chains, p.scope, p.operand.Chain)
		if !ok {
			return nil, newError(ErrChainNotFound, "%s", p.operand.Chain.Describe()).in(p.chain, p.link).at(p.loc)
		}
		p.operand.Chain = c.Name
	}
	b.pending = nil

	r := &Registry{
		chains:  b.chains,
		order:   b.order,
		endTime: b.EndTime,
		tempo:   b.Tempo,
	}
	for _, name := range r.order {
		c := r.chains[name]
		if c.IsNotes() {
			r.endTime = max(r.endTime, c.Timeline.Period.End)
			continue
		}
		if err := r.checkProperties(c); err != nil {
			return nil, err
		}
		if c.Play {
			if r.hasOutput {
				return nil, newError(ErrMultipleOutputChains, "%s and %s", r.output.Describe(), name.Describe()).at(c.Location)
			}
			r.output, r.hasOutput = name, yes
		}
	}
	// a note chain can be the output too
	for _, name := range r.order {
		if c := r.chains[name]; c.IsNotes() && c.Play {
			if r.hasOutput && r.output != name {
				return nil, newError(ErrMultipleOutputChains, "%s and %s", r.output.Describe(), name.Describe()).at(c.Location)
			}
			r.output, r.hasOutput = name, yes
		}
	}
	if b.End > 0 {
		r.endTime = b.End
	}
	if r.hasOutput {
		if err := r.checkCycles(r.output, nil, map[ChainName]bool{}); err != nil {
			return nil, err
		}
	}
	r.need = r.backlinkDepths()
	if r.hasOutput {
		if err := r.checkBackLinks(r.output); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) checkProperties(c *Chain) error {
	var err error
	for i, e := range c.Links {
		e.walk(func(o *Operand) {
			if o.Kind != KindProperty || err != nil {
				return
			}
			if target := r.chains[o.Chain]; !target.IsNotes() {
				err = newError(ErrPropertyOfGenericChain,
					"%s contains expressions, so the property '%s' cannot be taken from it",
					target.Name.Describe(), o.Property).in(c.Name, i).at(e.Location)
			}
		})
	}
	return err
}

// checkCycles rejects chains that invoke themselves. Every operand is
// evaluated, so any such cycle never terminates.
func (r *Registry) checkCycles(name ChainName, path []ChainName, done map[ChainName]bool) error {
	for i, p := range path {
		if p == name {
			cycle := make([]string, 0, len(path)-i+1)
			for _, q := range append(path[i:], name) {
				cycle = append(cycle, q.String())
			}
			c := r.chains[path[len(path)-1]]
			return newError(ErrRecursion, "%s", strings.Join(cycle, " -> ")).in(c.Name, -1).at(c.Location)
		}
	}
	if done[name] {
		return nil
	}
	c := r.chains[name]
	if c.IsNotes() {
		done[name] = yes
		return nil
	}
	path = append(path, name)
	for _, callee := range calls(c) {
		if err := r.checkCycles(callee, path, done); err != nil {
			return err
		}
	}
	done[name] = yes
	return nil
}

// calls lists the chains c invokes, in link order.
func calls(c *Chain) []ChainName {
	var out []ChainName
	for _, e := range c.Links {
		e.walk(func(o *Operand) {
			if o.Kind == KindID {
				out = append(out, o.Chain)
			}
		})
	}
	return out
}

// linkDepth is how many arguments link i of c reads: its deepest backlink,
// or the depth an invoked chain needs, since the invoked chain sees the same
// arguments the link does.
func (r *Registry) linkDepth(c *Chain, i int, need map[ChainName]int) int {
	d := 0
	c.Links[i].walk(func(o *Operand) {
		switch o.Kind {
		case KindBackLink:
			d = max(d, o.Back)
		case KindID:
			d = max(d, need[o.Chain])
		}
	})
	return d
}

// backlinkDepths works out how many caller arguments each chain reads.
// Link i has i local results before it, so only depth beyond i comes from
// the caller. Depths only grow, so iterating to a fixed point terminates.
func (r *Registry) backlinkDepths() map[ChainName]int {
	need := make(map[ChainName]int, len(r.chains))
	for changed := yes; changed; {
		changed = not
		for _, name := range r.order {
			c := r.chains[name]
			if c.IsNotes() {
				continue
			}
			n := 0
			for i := range c.Links {
				n = max(n, r.linkDepth(c, i, need)-i)
			}
			if n > need[name] {
				need[name] = n
				changed = yes
			}
		}
	}
	return need
}

// checkBackLinks reports the first link of the output chain that reads
// past its local results, as the output chain gets no arguments.
func (r *Registry) checkBackLinks(name ChainName) error {
	c := r.chains[name]
	if c.IsNotes() || r.need[name] == 0 {
		return nil
	}
	for i, e := range c.Links {
		if d := r.linkDepth(c, i, r.need); d > i {
			err := newError(ErrBackLinkOutOfRange, "output chain is invoked without arguments").in(name, i).at(e.Location)
			err.Expected, err.Available = d, i
			return err
		}
	}
	return nil
}

// Lookup finds a chain by its full name.
func (r *Registry) Lookup(name ChainName) (*Chain, bool) {
	c, ok := r.chains[name]
	return c, ok
}

// Output is the chain marked to play.
func (r *Registry) Output() (ChainName, bool) { return r.output, r.hasOutput }

// Need is the number of caller arguments the chain reads through backlinks.
func (r *Registry) Need(name ChainName) int { return r.need[name] }

// EndTime is the builder's end time, extended to the end of the longest note
// chain.
func (r *Registry) EndTime() float64 { return r.endTime }

func (r *Registry) Tempo() float64 { return r.tempo }

// Chains returns the chains in the order they were finalized.
func (r *Registry) Chains() []*Chain {
	out := make([]*Chain, len(r.order))
	for i, n := range r.order {
		out[i] = r.chains[n]
	}
	return out
}

// Names returns the scoped chain names, sorted.
func (r *Registry) Names() []string {
	var out []string
	for n := range r.chains {
		if !n.IsAnonymous() {
			out = append(out, n.Path)
		}
	}
	sort.Strings(out)
	return out
}

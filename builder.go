package sonny

// scope is a name in scope. contents marks that the names inside it are in
// scope (use gen::*) rather than the name itself (use gen).
type scope struct {
	path     string
	contents bool
}

type openChain struct {
	*Chain
	mark int // scope depth to restore on finalize
}

// pending is an identifier that did not resolve when its link was appended,
// usually a forward or self reference. It is retried by Registry.
type pending struct {
	operand *Operand
	chain   ChainName
	link    int
	scope   []scope
	loc     Location
}

// Builder constructs chains. The parser drives it: Begin a chain, Append its
// links, Finalize it, and finally take the Registry.
type Builder struct {
	open      []openChain
	scope     []scope
	chains    map[ChainName]*Chain
	order     []ChainName // finalize order, for listings
	nextAnon  int
	anonDepth int // named chains may not be declared while nonzero
	pending   []pending
	loc       Location

	Tempo   float64 // beats per minute, for note durations
	EndTime float64 // seconds, extended by longer note chains
	End     float64 // seconds, replaces the computed end time when positive
}

func NewBuilder() *Builder {
	return &Builder{
		chains:  make(map[ChainName]*Chain),
		Tempo:   120,
		EndTime: 1,
	}
}

// At sets the source location attached to what is built next.
func (b *Builder) At(loc Location) { b.loc = loc }

// Begin opens a new chain. An empty name opens an anonymous chain. A named
// chain's path is its enclosing named chain's path joined with name.
func (b *Builder) Begin(name string) (ChainName, error) {
	var cn ChainName
	mark := len(b.scope)
	if name == "" {
		cn = Anonymous(b.nextAnon)
		b.nextAnon++
		b.anonDepth++
	} else {
		if b.anonDepth > 0 {
			return cn, newError(ErrNamedChainInAnonChain, "%q", name).at(b.loc)
		}
		path := name
		if n := len(b.open); n > 0 {
			path = b.open[n-1].Name.Path + "::" + name
		}
		cn = Scoped(path)
		if b.declared(cn) {
			return cn, newError(ErrChainRedeclaration, "%s", cn.Describe()).at(b.loc)
		}
		b.scope = append(b.scope, scope{path: path, contents: yes})
	}
	b.open = append(b.open, openChain{&Chain{Name: cn, Location: b.loc}, mark})
	return cn, nil
}

func (b *Builder) declared(cn ChainName) bool {
	if _, ok := b.chains[cn]; ok {
		return yes
	}
	for _, c := range b.open {
		if c.Name == cn {
			return yes
		}
	}
	return not
}

func (b *Builder) current() (*openChain, error) {
	if len(b.open) == 0 {
		return nil, newError(ErrNoOpenChain, "").at(b.loc)
	}
	return &b.open[len(b.open)-1], nil
}

// Append adds a link to the chain under construction. Identifiers are
// resolved against the current scope; those that are not yet declared are
// retried when the Registry is built.
func (b *Builder) Append(e *Expression) error {
	c, err := b.current()
	if err != nil {
		return err
	}
	if c.Timeline != nil {
		return newError(ErrNoOpenChain, "%s is already a note chain", c.Name.Describe()).at(b.loc)
	}
	if e.Location.IsZero() {
		e.Location = b.loc
	}
	link := len(c.Links)
	var failed error
	e.walk(func(o *Operand) {
		switch o.Kind {
		case KindBackLink:
			if o.Back < 1 && failed == nil {
				failed = newError(ErrZeroBackLink, "!%d", o.Back).in(c.Name, link).at(e.Location)
			}
		case KindID, KindProperty:
			if found, ok := b.Resolve(o.Chain); ok {
				o.Chain = found.Name
				return
			}
			b.pending = append(b.pending, pending{
				operand: o,
				chain:   c.Name,
				link:    link,
				scope:   append([]scope(nil), b.scope...),
				loc:     e.Location,
			})
		}
	})
	if failed != nil {
		return failed
	}
	c.Links = append(c.Links, e)
	return nil
}

// Play marks the chain under construction as the output chain.
func (b *Builder) Play() error {
	c, err := b.current()
	if err != nil {
		return err
	}
	c.Play = yes
	return nil
}

// Use brings path (contents false) or the names inside it (contents true)
// into scope until the enclosing chain is finalized.
func (b *Builder) Use(path string, contents bool) {
	b.scope = append(b.scope, scope{path: path, contents: contents})
}

// Finalize closes the chain under construction. A chain whose links are all
// notes or references to note chains becomes a note chain.
func (b *Builder) Finalize() (*Chain, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	oc := *c
	b.open = b.open[:len(b.open)-1]
	b.scope = b.scope[:oc.mark]
	if oc.Name.IsAnonymous() {
		b.anonDepth--
	}

	if tl, ok := b.timeline(oc.Links); ok {
		oc.Timeline = tl
		oc.Links = nil
	}
	b.chains[oc.Name] = oc.Chain
	b.order = append(b.order, oc.Name)
	return oc.Chain, nil
}

// timeline flattens links into a note timeline, laying notes end to end.
func (b *Builder) timeline(links []*Expression) (*Timeline, bool) {
	tl := &Timeline{}
	var t float64
	for _, e := range links {
		if e.Op != OpValue {
			return nil, not
		}
		o := e.Operands[0]
		switch o.Kind {
		case KindNotes:
			notes := make([]Note, len(o.Notes))
			for i, n := range o.Notes {
				d := n.Period.Duration()
				notes[i] = Note{Pitches: n.Pitches, Period: Period{t, t + d}}
				t += d
			}
			tl.Entries = append(tl.Entries, NotesOrID{Notes: notes})
		case KindID:
			ref, ok := b.chains[o.Chain]
			if !ok || !ref.IsNotes() {
				return nil, not
			}
			tl.Entries = append(tl.Entries, NotesOrID{ID: ref.Name, IsID: yes})
			t += ref.Timeline.Period.Duration()
		default:
			return nil, not
		}
	}
	tl.Period = Period{0, t}
	return tl, yes
}

// Resolve finds a chain by name. A scoped name is tried as a full path
// first, then against each scope, innermost first.
func (b *Builder) Resolve(name ChainName) (*Chain, bool) {
	return resolveIn(b.chains, b.scope, name)
}

func resolveIn(chains map[ChainName]*Chain, sc []scope, name ChainName) (*Chain, bool) {
	if c, ok := chains[name]; ok || name.IsAnonymous() {
		return c, ok
	}
	for i := len(sc) - 1; i >= 0; i-- {
		s := sc[i]
		if s.contents {
			if c, ok := chains[Scoped(s.path+"::"+name.Path)]; ok {
				return c, yes
			}
		} else if Scoped(s.path).local() == name.Path {
			if c, ok := chains[Scoped(s.path)]; ok {
				return c, yes
			}
		}
	}
	return nil, not
}

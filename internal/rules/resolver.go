package rules

// Resolver turns a buffer name into a concrete placement decision by merging
// the store's matching rules over a set of defaults.
type Resolver struct {
	store    *Store
	defaults Defaults
}

// NewResolver creates a Resolver over a store.
func NewResolver(store *Store, defaults Defaults) *Resolver {
	return &Resolver{store: store, defaults: defaults}
}

// Defaults returns the resolver's default placement values.
func (r *Resolver) Defaults() Defaults {
	return r.defaults
}

// Resolve produces the placement decision for a buffer. The second return is
// false when the buffer is not a popup: no rule matches, or a matching rule
// sets ignore.
//
// Merge policy: matching rules are folded in store order and for each field
// the last rule that specifies it wins. Unspecified fields never override
// specified ones. A matching ignore is absolute regardless of rule order.
func (r *Resolver) Resolve(buffer string) (Decision, bool) {
	matches := r.store.FindMatches(buffer)
	if len(matches) == 0 {
		return Decision{}, false
	}

	for _, m := range matches {
		if m.Ignore != nil && *m.Ignore {
			return Decision{}, false
		}
	}

	d := Decision{
		Buffer:   buffer,
		Side:     r.defaults.Side,
		Size:     r.defaults.Size,
		Select:   r.defaults.Select,
		Modeline: r.defaults.Modeline,
		Quit:     r.defaults.Quit,
		TTL:      r.defaults.TTL,
		Autosave: r.defaults.Autosave,
	}

	for _, m := range matches {
		if m.Side != nil {
			d.Side = *m.Side
		}
		if m.Size != nil {
			d.Size = *m.Size
		}
		if m.Slot != nil {
			d.Slot = *m.Slot
		}
		if m.VSlot != nil {
			d.VSlot = *m.VSlot
		}
		if m.Select != nil {
			d.Select = *m.Select
		}
		if m.Modeline != nil {
			d.Modeline = *m.Modeline
		}
		if m.Quit != nil {
			d.Quit = *m.Quit
		}
		if m.TTL != nil {
			d.TTL = m.TTL.Duration()
		}
		if m.Autosave != nil {
			d.Autosave = *m.Autosave
		}
	}

	return d, true
}

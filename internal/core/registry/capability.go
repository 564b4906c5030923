package registry

// Capability interfaces replace name-based forwarding: entity types opt into
// behaviors the pool can drive across a selection, and members lacking a
// capability are silently skipped.

// Updater is the per-frame update hook.
type Updater interface {
	Update(dt float64)
}

// Renderer is the per-frame draw hook.
type Renderer interface {
	Render()
}

// Keyed exposes named comparable values for the *By pool accessors.
type Keyed interface {
	Key(name string) (float64, bool)
}

// Dispatch invokes call on every pool member that satisfies capability C,
// in pool order, skipping the rest. Returns the pool for chaining.
//
//	registry.Dispatch[registry.Updater](pool, func(u registry.Updater) { u.Update(dt) })
func Dispatch[C any, E comparable](p *Pool[E], call func(C)) *Pool[E] {
	for _, e := range p.items {
		if c, ok := any(e).(C); ok {
			call(c)
		}
	}
	return p
}

// Update drives the Updater capability across the pool.
func (p *Pool[E]) Update(dt float64) *Pool[E] {
	return Dispatch[Updater](p, func(u Updater) { u.Update(dt) })
}

// Render drives the Renderer capability across the pool.
func (p *Pool[E]) Render() *Pool[E] {
	return Dispatch[Renderer](p, func(r Renderer) { r.Render() })
}

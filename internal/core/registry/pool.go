package registry

import (
	"iter"
	"math"
	"sort"
)

// Pool is an ordered collection of entity references captured from a
// registry scan. It shares entities with the registry without owning them:
// deleting from the registry leaves the pool holding a stale reference until
// Prune or an explicit Remove. Chain operations return the pool itself.
//
// Mutating a pool while ranging over Each is undefined; restarting an
// iteration re-reads the current contents.
type Pool[E comparable] struct {
	reg   *Registry[E]
	items []E
}

// Query scans live entities in registration order and collects every one
// matching the merged query. With no arguments it collects everything.
func (r *Registry[E]) Query(query ...string) *Pool[E] {
	spec := r.parse(query)
	p := &Pool[E]{reg: r, items: make([]E, 0, len(r.order))}
	for _, e := range r.order {
		rec := r.records[e]
		if spec.Match(string(rec.id), rec.state, rec.flags) {
			p.items = append(p.items, e)
		}
	}
	return p
}

// QueryFunc collects every live entity accepted by the predicate, in
// registration order. The predicate receives the raw payload.
func (r *Registry[E]) QueryFunc(pred func(E) bool) *Pool[E] {
	p := &Pool[E]{reg: r, items: make([]E, 0, len(r.order))}
	for _, e := range r.order {
		if pred(e) {
			p.items = append(p.items, e)
		}
	}
	return p
}

// Add appends entities not already present. Membership is identity-based.
func (p *Pool[E]) Add(entities ...E) *Pool[E] {
	for _, e := range entities {
		if !p.contains(e) {
			p.items = append(p.items, e)
		}
	}
	return p
}

// AddPool appends the other pool's entities not already present, in the
// other pool's order.
func (p *Pool[E]) AddPool(o *Pool[E]) *Pool[E] {
	return p.Add(o.items...)
}

// AddQuery appends registry entities matching the query, skipping ones
// already present.
func (p *Pool[E]) AddQuery(query string) *Pool[E] {
	return p.AddPool(p.reg.Query(query))
}

// AddFunc appends registry entities the predicate accepts, skipping ones
// already present.
func (p *Pool[E]) AddFunc(pred func(E) bool) *Pool[E] {
	return p.AddPool(p.reg.QueryFunc(pred))
}

// Remove removes the first occurrence of each given entity.
func (p *Pool[E]) Remove(entities ...E) *Pool[E] {
	for _, e := range entities {
		for i, it := range p.items {
			if it == e {
				p.items = append(p.items[:i], p.items[i+1:]...)
				break
			}
		}
	}
	return p
}

// RemovePool removes the other pool's entities from this one.
func (p *Pool[E]) RemovePool(o *Pool[E]) *Pool[E] {
	return p.Remove(o.items...)
}

// RemoveQuery removes every member matching the query.
func (p *Pool[E]) RemoveQuery(query string) *Pool[E] {
	spec := p.reg.specs.Parse(query)
	for i := len(p.items) - 1; i >= 0; i-- {
		if rec, ok := p.reg.records[p.items[i]]; ok && spec.Match(string(rec.id), rec.state, rec.flags) {
			p.items = append(p.items[:i], p.items[i+1:]...)
		}
	}
	return p
}

// RemoveFunc removes every member the predicate accepts.
func (p *Pool[E]) RemoveFunc(pred func(E) bool) *Pool[E] {
	for i := len(p.items) - 1; i >= 0; i-- {
		if pred(p.items[i]) {
			p.items = append(p.items[:i], p.items[i+1:]...)
		}
	}
	return p
}

// Filter narrows the pool in place to members matching the query, preserving
// order. Members no longer registered are dropped. Compaction walks from the
// end so indices stay valid.
func (p *Pool[E]) Filter(query ...string) *Pool[E] {
	spec := p.reg.parse(query)
	for i := len(p.items) - 1; i >= 0; i-- {
		rec, ok := p.reg.records[p.items[i]]
		if !ok || !spec.Match(string(rec.id), rec.state, rec.flags) {
			p.items = append(p.items[:i], p.items[i+1:]...)
		}
	}
	return p
}

// FilterFunc narrows the pool in place to members the predicate accepts.
func (p *Pool[E]) FilterFunc(pred func(E) bool) *Pool[E] {
	for i := len(p.items) - 1; i >= 0; i-- {
		if !pred(p.items[i]) {
			p.items = append(p.items[:i], p.items[i+1:]...)
		}
	}
	return p
}

// Copy returns a shallow duplicate; mutating either pool never affects the
// other.
func (p *Pool[E]) Copy() *Pool[E] {
	items := make([]E, len(p.items))
	copy(items, p.items)
	return &Pool[E]{reg: p.reg, items: items}
}

// Sort orders the pool stably by the caller's less-than comparator.
func (p *Pool[E]) Sort(less func(a, b E) bool) *Pool[E] {
	sort.SliceStable(p.items, func(i, j int) bool {
		return less(p.items[i], p.items[j])
	})
	return p
}

// Call invokes fn for every member in pool order.
func (p *Pool[E]) Call(fn func(E)) *Pool[E] {
	for _, e := range p.items {
		fn(e)
	}
	return p
}

// Delete removes every member from the registry, then empties the pool.
func (p *Pool[E]) Delete() *Pool[E] {
	for _, e := range p.items {
		p.reg.Delete(e)
	}
	p.items = p.items[:0]
	return p
}

// Prune drops members whose registry record is gone, the explicit self-heal
// for pools that outlived deletions.
func (p *Pool[E]) Prune() *Pool[E] {
	for i := len(p.items) - 1; i >= 0; i-- {
		if _, ok := p.reg.records[p.items[i]]; !ok {
			p.items = append(p.items[:i], p.items[i+1:]...)
		}
	}
	return p
}

// Size returns the member count.
func (p *Pool[E]) Size() int { return len(p.items) }

// First returns the first member, false on an empty pool.
func (p *Pool[E]) First() (E, bool) {
	if len(p.items) == 0 {
		var zero E
		return zero, false
	}
	return p.items[0], true
}

// Last returns the last member, false on an empty pool.
func (p *Pool[E]) Last() (E, bool) {
	if len(p.items) == 0 {
		var zero E
		return zero, false
	}
	return p.items[len(p.items)-1], true
}

// At returns the member at index i, false when out of range.
func (p *Pool[E]) At(i int) (E, bool) {
	if i < 0 || i >= len(p.items) {
		var zero E
		return zero, false
	}
	return p.items[i], true
}

// Random returns a uniformly chosen member, false on an empty pool. Draws
// from the registry's seeded source so runs are reproducible.
func (p *Pool[E]) Random() (E, bool) {
	if len(p.items) == 0 {
		var zero E
		return zero, false
	}
	return p.items[p.reg.rng.Intn(len(p.items))], true
}

// Smallest returns the member with the minimum key. Single left-to-right
// scan; ties keep the earliest candidate. False on an empty pool.
func (p *Pool[E]) Smallest(key func(E) float64) (E, bool) {
	return p.extremum(key, func(v, best float64) bool { return v < best })
}

// Biggest returns the member with the maximum key; ties keep the earliest.
func (p *Pool[E]) Biggest(key func(E) float64) (E, bool) {
	return p.extremum(key, func(v, best float64) bool { return v > best })
}

// Closest returns the member whose key is nearest ref; ties keep the
// earliest.
func (p *Pool[E]) Closest(key func(E) float64, ref float64) (E, bool) {
	return p.extremum(
		func(e E) float64 { return math.Abs(key(e) - ref) },
		func(v, best float64) bool { return v < best },
	)
}

func (p *Pool[E]) extremum(key func(E) float64, better func(v, best float64) bool) (E, bool) {
	var best E
	var bestV float64
	found := false
	for _, e := range p.items {
		v := key(e)
		if !found || better(v, bestV) {
			best, bestV, found = e, v, true
		}
	}
	return best, found
}

// SmallestBy is Smallest over the Keyed capability: members lacking the
// capability, or not exposing the named key, are skipped.
func (p *Pool[E]) SmallestBy(name string) (E, bool) {
	return p.extremumBy(name, func(v, best float64) bool { return v < best })
}

// BiggestBy is Biggest over the Keyed capability.
func (p *Pool[E]) BiggestBy(name string) (E, bool) {
	return p.extremumBy(name, func(v, best float64) bool { return v > best })
}

// ClosestBy is Closest over the Keyed capability.
func (p *Pool[E]) ClosestBy(name string, ref float64) (E, bool) {
	var best E
	var bestV float64
	found := false
	for _, e := range p.items {
		k, ok := any(e).(Keyed)
		if !ok {
			continue
		}
		v, ok := k.Key(name)
		if !ok {
			continue
		}
		d := math.Abs(v - ref)
		if !found || d < bestV {
			best, bestV, found = e, d, true
		}
	}
	return best, found
}

func (p *Pool[E]) extremumBy(name string, better func(v, best float64) bool) (E, bool) {
	var best E
	var bestV float64
	found := false
	for _, e := range p.items {
		k, ok := any(e).(Keyed)
		if !ok {
			continue
		}
		v, ok := k.Key(name)
		if !ok {
			continue
		}
		if !found || better(v, bestV) {
			best, bestV, found = e, v, true
		}
	}
	return best, found
}

// Each yields (index, entity) pairs in pool order. The sequence is lazy and
// restartable; each start re-reads the current contents.
func (p *Pool[E]) Each() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i, e := range p.items {
			if !yield(i, e) {
				return
			}
		}
	}
}

func (p *Pool[E]) contains(e E) bool {
	for _, it := range p.items {
		if it == e {
			return true
		}
	}
	return false
}

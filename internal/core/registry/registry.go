package registry

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riftforge/tagworld/internal/core/event"
	"github.com/riftforge/tagworld/internal/core/tag"
)

// Handle is the engine-issued textual identifier of a registered entity.
// Immutable once assigned; unique among live entities. Generated handles
// take the form `<prefix>_<counter>`.
type Handle string

// Presence classifies what a handle currently resolves to.
type Presence int

const (
	Absent Presence = iota // never issued by this registry
	Stale                  // was live once, owner deleted since
	Live                   // resolves to a registered entity
)

func (p Presence) String() string {
	switch p {
	case Live:
		return "live"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// record is the per-entity core metadata kept alongside the opaque payload.
type record struct {
	id    Handle
	state string
	flags map[string]struct{}
}

// Config tunes a registry. The zero value is usable.
type Config struct {
	IDPrefix string // handle prefix for generated ids, default "id"
	Seed     int64  // seed for pool Random(), 0 = time-based
}

// Registry owns the id→entity mapping and the per-entity tag metadata.
// E is the caller's opaque payload type, normally a pointer type; the
// registry never inspects payload fields. Single-goroutine access only
// (game loop); a concurrent host must serialize all calls.
type Registry[E comparable] struct {
	records map[E]*record
	byID    map[Handle]E
	order   []E // registration order, drives deterministic query scans
	retired map[Handle]struct{}
	counter uint64
	prefix  string
	rng     *rand.Rand
	specs   *tag.Cache
	bus     *event.Bus
}

// New creates a registry with default configuration.
func New[E comparable]() *Registry[E] {
	return NewWith[E](Config{})
}

// NewWith creates a registry with explicit configuration.
func NewWith[E comparable](cfg Config) *Registry[E] {
	prefix := cfg.IDPrefix
	if prefix == "" {
		prefix = "id"
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry[E]{
		records: make(map[E]*record, 256),
		byID:    make(map[Handle]E, 256),
		order:   make([]E, 0, 256),
		retired: make(map[Handle]struct{}),
		prefix:  prefix,
		rng:     rand.New(rand.NewSource(seed)),
		specs:   tag.NewCache(),
	}
}

// SetBus attaches a lifecycle event bus. Pass nil to detach.
func (r *Registry[E]) SetBus(b *event.Bus) { r.bus = b }

// Register adds e to the registry and returns its handle. A `#name` token in
// the query assigns that literal id; on collision the last registration wins
// the id→entity mapping while the earlier owner stays registered. Without an
// id token the next free generated id is used. State and flag tokens in the
// query are applied immediately. Registering an already-registered entity
// just applies the query to its existing record.
func (r *Registry[E]) Register(e E, query ...string) Handle {
	spec := r.parse(query)
	if rec, ok := r.records[e]; ok {
		r.applySpec(rec, spec)
		return rec.id
	}
	var h Handle
	if spec.ID != "" {
		h = Handle(spec.ID)
		delete(r.retired, h)
	} else {
		h = r.nextHandle()
	}
	rec := &record{id: h, flags: make(map[string]struct{}, 4)}
	r.records[e] = rec
	r.byID[h] = e
	r.order = append(r.order, e)
	r.applySpec(rec, spec)
	if r.bus != nil {
		event.Emit(r.bus, event.EntityRegistered{ID: string(h)})
	}
	return h
}

// nextHandle advances the monotonic counter past any manually taken ids.
// Never reset on deletion.
func (r *Registry[E]) nextHandle() Handle {
	for {
		r.counter++
		h := Handle(r.prefix + "_" + strconv.FormatUint(r.counter, 10))
		if _, taken := r.byID[h]; !taken {
			return h
		}
	}
}

// Delete removes e from the registry. Idempotent; reports whether a record
// was actually removed. Pools that captured e keep their stale reference
// until pruned.
func (r *Registry[E]) Delete(e E) bool {
	rec, ok := r.records[e]
	if !ok {
		return false
	}
	delete(r.records, e)
	for i, o := range r.order {
		if o == e {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if cur, ok := r.byID[rec.id]; ok && cur == e {
		delete(r.byID, rec.id)
		r.retired[rec.id] = struct{}{}
	}
	if r.bus != nil {
		event.Emit(r.bus, event.EntityDeleted{ID: string(rec.id)})
	}
	return true
}

// Set applies a query's state and flag tokens to e's record: positive state
// and flags are set, excluded flags are removed, and an excluded state token
// clears the state when it matches. No-op on unregistered payloads.
func (r *Registry[E]) Set(e E, query ...string) {
	rec, ok := r.records[e]
	if !ok {
		return
	}
	r.applySpec(rec, r.parse(query))
}

func (r *Registry[E]) applySpec(rec *record, spec tag.Spec) {
	if spec.State != "" && spec.State != rec.state {
		old := rec.state
		rec.state = spec.State
		r.emitState(rec, old)
	}
	if spec.ExcludedState != "" && rec.state == spec.ExcludedState {
		old := rec.state
		rec.state = ""
		r.emitState(rec, old)
	}
	changed := false
	for _, f := range spec.Flags {
		if _, ok := rec.flags[f]; !ok {
			rec.flags[f] = struct{}{}
			changed = true
		}
	}
	for _, f := range spec.ExcludedFlags {
		if _, ok := rec.flags[f]; ok {
			delete(rec.flags, f)
			changed = true
		}
	}
	if changed {
		r.emitFlags(rec)
	}
}

// SetState replaces e's state tag. An empty string clears it.
func (r *Registry[E]) SetState(e E, state string) {
	rec, ok := r.records[e]
	if !ok || rec.state == state {
		return
	}
	old := rec.state
	rec.state = state
	r.emitState(rec, old)
}

// AddFlags adds each whitespace-separated tag in batch to e's flag set.
// Idempotent per tag.
func (r *Registry[E]) AddFlags(e E, batch string) {
	rec, ok := r.records[e]
	if !ok {
		return
	}
	changed := false
	for _, f := range strings.Fields(batch) {
		if _, ok := rec.flags[f]; !ok {
			rec.flags[f] = struct{}{}
			changed = true
		}
	}
	if changed {
		r.emitFlags(rec)
	}
}

// RemoveFlags removes each whitespace-separated tag in batch from e's flag
// set. Idempotent per tag.
func (r *Registry[E]) RemoveFlags(e E, batch string) {
	rec, ok := r.records[e]
	if !ok {
		return
	}
	changed := false
	for _, f := range strings.Fields(batch) {
		if _, ok := rec.flags[f]; ok {
			delete(rec.flags, f)
			changed = true
		}
	}
	if changed {
		r.emitFlags(rec)
	}
}

func (r *Registry[E]) emitState(rec *record, old string) {
	if r.bus != nil {
		event.Emit(r.bus, event.StateChanged{ID: string(rec.id), Old: old, New: rec.state})
	}
}

func (r *Registry[E]) emitFlags(rec *record) {
	if r.bus != nil {
		event.Emit(r.bus, event.FlagsChanged{ID: string(rec.id), Flags: joinFlags(rec.flags)})
	}
}

// Flags returns e's flag set as a space-joined, sorted string. Empty string
// for unregistered payloads or empty sets.
func (r *Registry[E]) Flags(e E) string {
	rec, ok := r.records[e]
	if !ok {
		return ""
	}
	return joinFlags(rec.flags)
}

// HasFlags reports whether e carries every flag named in the query. A query
// naming no flags returns false: at least one flag must be requested.
func (r *Registry[E]) HasFlags(e E, query string) bool {
	rec, ok := r.records[e]
	if !ok {
		return false
	}
	spec := r.specs.Parse(query)
	if len(spec.Flags) == 0 {
		return false
	}
	for _, f := range spec.Flags {
		if _, ok := rec.flags[f]; !ok {
			return false
		}
	}
	return true
}

// HasNoFlags reports whether e carries none of the flags named in the query.
func (r *Registry[E]) HasNoFlags(e E, query string) bool {
	rec, ok := r.records[e]
	if !ok {
		return false
	}
	for _, f := range r.specs.Parse(query).Flags {
		if _, ok := rec.flags[f]; ok {
			return false
		}
	}
	return true
}

// Is reports whether e satisfies the full query: id, state, and flag
// clauses, positive and negated. False for unregistered payloads.
func (r *Registry[E]) Is(e E, query ...string) bool {
	rec, ok := r.records[e]
	if !ok {
		return false
	}
	return r.parse(query).Match(string(rec.id), rec.state, rec.flags)
}

// IsFunc reports whether the predicate accepts e. False for unregistered
// payloads; the predicate receives the raw payload, not the record.
func (r *Registry[E]) IsFunc(e E, pred func(E) bool) bool {
	if _, ok := r.records[e]; !ok {
		return false
	}
	return pred(e)
}

// ID returns e's handle, false if unregistered.
func (r *Registry[E]) ID(e E) (Handle, bool) {
	rec, ok := r.records[e]
	if !ok {
		return "", false
	}
	return rec.id, true
}

// State returns e's state tag ("" means no state), false if unregistered.
func (r *Registry[E]) State(e E) (string, bool) {
	rec, ok := r.records[e]
	if !ok {
		return "", false
	}
	return rec.state, true
}

// Entity resolves a handle to its current owner.
func (r *Registry[E]) Entity(h Handle) (E, bool) {
	e, ok := r.byID[h]
	return e, ok
}

// Presence classifies h as Live, Stale (owner deleted), or Absent.
func (r *Registry[E]) Presence(h Handle) Presence {
	if _, ok := r.byID[h]; ok {
		return Live
	}
	if _, ok := r.retired[h]; ok {
		return Stale
	}
	return Absent
}

// Size returns the live entity count.
func (r *Registry[E]) Size() int { return len(r.records) }

// Describe renders e's record for diagnostics: `#id @state flag1 flag2`.
// Empty string for unregistered payloads.
func (r *Registry[E]) Describe(e E) string {
	rec, ok := r.records[e]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(string(rec.id))
	if rec.state != "" {
		b.WriteString(" @")
		b.WriteString(rec.state)
	}
	if len(rec.flags) > 0 {
		b.WriteByte(' ')
		b.WriteString(joinFlags(rec.flags))
	}
	return b.String()
}

// parse merges query parts into one spec, using the cache for the common
// single-string case.
func (r *Registry[E]) parse(parts []string) tag.Spec {
	switch len(parts) {
	case 0:
		return tag.Spec{}
	case 1:
		return r.specs.Parse(parts[0])
	default:
		return tag.Parse(parts...)
	}
}

func joinFlags(flags map[string]struct{}) string {
	if len(flags) == 0 {
		return ""
	}
	names := make([]string, 0, len(flags))
	for f := range flags {
		names = append(names, f)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

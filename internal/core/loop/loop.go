package loop

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/riftforge/tagworld/internal/core/event"
)

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: react to last tick's events
	PhaseUpdate                  // 1: behavior and spatial logic
	PhasePostUpdate              // 2: spawning, scoring
	PhaseCleanup                 // 3: delete expired entities
)

// System is a per-tick unit of work driven by the Runner. Systems typically
// run one registry query plus a chain of pool operations.
type System interface {
	Name() string
	Phase() Phase
	Update(dt time.Duration)
}

// Runner executes systems in phase order each tick. If a bus is attached it
// is flushed at tick start, so events emitted in tick N reach handlers before
// tick N+1's systems run.
type Runner struct {
	systems []System
	sorted  bool
	bus     *event.Bus
	log     *zap.Logger
	slow    time.Duration
}

func NewRunner(bus *event.Bus, log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
		bus:     bus,
		log:     log,
		slow:    10 * time.Millisecond,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick flushes pending events and runs every system once, logging any system
// that overruns the slow-tick threshold.
func (r *Runner) Tick(dt time.Duration) {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
	if r.bus != nil {
		r.bus.Flush()
	}
	for _, s := range r.systems {
		start := time.Now()
		s.Update(dt)
		if elapsed := time.Since(start); elapsed > r.slow && r.log != nil {
			r.log.Warn("slow system",
				zap.String("system", s.Name()),
				zap.Duration("elapsed", elapsed))
		}
	}
}

// Func wraps a plain function as a System.
func Func(name string, phase Phase, fn func(dt time.Duration)) System {
	return funcSystem{name: name, phase: phase, fn: fn}
}

type funcSystem struct {
	name  string
	phase Phase
	fn    func(dt time.Duration)
}

func (s funcSystem) Name() string            { return s.name }
func (s funcSystem) Phase() Phase            { return s.phase }
func (s funcSystem) Update(dt time.Duration) { s.fn(dt) }

package tcsched

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/pktsched/pktsched/pkg/collections"
	"github.com/pktsched/pktsched/pkg/utils"
)

// Scheduler drives ticks over a single rooted tree of traffic classes: each
// tick walks from the root to a leaf by repeated PickNextChild calls,
// invokes the leaf's task, and propagates usage and block state back
// towards the root.
type Scheduler struct {
	name   string
	root   node
	queue  *WakeupQueue
	clock  utils.Clock
	logger utils.Logger
	tscHz  uint64

	tsc              uint64
	ticks            uint64
	snapshotInterval uint64
	onSnapshot       func(Snapshot)

	history *collections.RingBuffer[Snapshot]
}

// Snapshot is a point-in-time readout of a tree's per-node statistics, used
// both for structured logging and for handing off to an archiving backend.
type Snapshot struct {
	TreeName string
	Tick     uint64
	TSC      uint64
	Nodes    []NodeSnapshot
}

// NodeSnapshot is one node's statistics at the moment a Snapshot was taken.
type NodeSnapshot struct {
	Name    string
	Policy  string
	Blocked bool
	Usage   Usage
}

// SchedulerOption configures optional Scheduler behavior.
type SchedulerOption func(*Scheduler)

// WithSnapshots enables periodic statistics snapshots every interval ticks,
// delivered to onSnapshot. A zero interval disables snapshotting.
func WithSnapshots(interval uint64, onSnapshot func(Snapshot)) SchedulerOption {
	return func(s *Scheduler) {
		s.snapshotInterval = interval
		s.onSnapshot = onSnapshot
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l utils.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithHistory retains the last capacity snapshots in memory (oldest
// overwritten first), independent of onSnapshot/archiving. Useful for a
// CLI or dashboard that wants to inspect recent history without hitting
// an archiving backend. A zero capacity disables history retention.
func WithHistory(capacity int) SchedulerOption {
	return func(s *Scheduler) {
		if capacity > 0 {
			s.history = collections.NewRingBuffer[Snapshot](capacity)
		}
	}
}

// NewScheduler creates a Scheduler driving root, starting the virtual clock
// (the tsc counter) at zero. tscHz must match the value used to build any
// rate-limit nodes in root's subtree.
func NewScheduler(name string, root node, tscHz uint64, clock utils.Clock, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		name:   name,
		root:   root,
		queue:  NewWakeupQueue(),
		clock:  clock,
		logger: &utils.NullLogger{},
		tscHz:  tscHz,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick advances the virtual clock by cyclesElapsed, drains any wakeups now
// due, and if the tree has a runnable leaf, picks and invokes it once.
// It returns false if nothing was runnable this tick (the caller should
// back off, e.g. sleeping idle_sleep_millis per the scheduler config,
// before calling Tick again).
func (s *Scheduler) Tick(ctx context.Context, cyclesElapsed uint64) bool {
	ctx, span := otel.Tracer("tcsched").Start(ctx, "Scheduler.Tick")
	defer span.End()

	s.tsc += cyclesElapsed
	s.ticks++

	s.queue.DrainDue(s.tsc, func(n node) {
		n.UnblockTowardsRoot(s.tsc)
	})

	ran := s.runOnce(ctx, s.tsc)

	if s.snapshotInterval > 0 && s.ticks%s.snapshotInterval == 0 {
		snap := s.Snapshot()
		if s.onSnapshot != nil {
			s.onSnapshot(snap)
		}
		if s.history != nil {
			if s.history.IsFull() {
				s.history.Pop()
			}
			s.history.Push(snap)
		}
	}

	return ran
}

func (s *Scheduler) runOnce(ctx context.Context, now uint64) bool {
	if s.root.Blocked() {
		return false
	}

	n := s.root
	for {
		next := n.PickNextChild()
		if next == nil {
			return false
		}
		leaf, ok := next.(*LeafTrafficClass)
		if ok {
			result := leaf.Invoke(s.queue, now)
			s.logger.Debug("invoked leaf %q in tree %q, blocked=%v", leaf.Name(), s.name, result.Blocked)
			return true
		}
		n = next
	}
}

// Run calls Tick in a loop until ctx is cancelled, sleeping idleSleep
// between ticks that found nothing runnable. cyclesPerTick is the number of
// TSC cycles Tick should advance the virtual clock by on each call.
func (s *Scheduler) Run(ctx context.Context, cyclesPerTick uint64, idleSleep func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !s.Tick(ctx, cyclesPerTick) {
			if idleSleep != nil {
				idleSleep()
			}
		}
	}
}

// Snapshot walks the tree and collects each node's current statistics.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{TreeName: s.name, Tick: s.ticks, TSC: s.tsc}
	var walk func(node)
	walk = func(n node) {
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			Name:    n.Name(),
			Policy:  n.Policy().String(),
			Blocked: n.Blocked(),
			Usage:   n.Stats().Usage,
		})
		n.TraverseChildren(func(a TCChildArgs) { walk(a.Child) })
	}
	walk(s.root)
	return snap
}

// History returns the retained snapshots in oldest-to-newest order, or nil
// if WithHistory was never set. Draining does not empty the ring buffer;
// callers get a copy of its current contents.
func (s *Scheduler) History() []Snapshot {
	if s.history == nil {
		return nil
	}
	n := s.history.Len()
	out := make([]Snapshot, 0, n)
	for i := 0; i < n; i++ {
		// RingBuffer only exposes destructive Pop/Peek; Peek alone can't walk
		// past the head, so drain into out and refill to preserve contents.
		v, _ := s.history.Pop()
		out = append(out, v)
	}
	for _, v := range out {
		s.history.Push(v)
	}
	return out
}

// TSC returns the scheduler's current virtual cycle counter.
func (s *Scheduler) TSC() uint64 { return s.tsc }

// Root returns the tree's root node.
func (s *Scheduler) Root() node { return s.root }

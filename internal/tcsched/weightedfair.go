package tcsched

import (
	"container/heap"

	"github.com/pktsched/pktsched/pkg/errors"
)

// wfChild is one child of a WeightedFairTrafficClass: its stride-scheduling
// pass counter, its fixed stride (inversely proportional to share), and
// whether it currently sits in the runnable heap or the blocked set.
type wfChild struct {
	child  node
	share  int
	stride uint64
	pass   uint64
	index  int // heap index, maintained by container/heap
}

// wfHeap is a min-heap of runnable children ordered by pass number, the
// classic stride-scheduling priority queue: the child with the smallest
// accumulated pass runs next.
type wfHeap []*wfChild

func (h wfHeap) Len() int           { return len(h) }
func (h wfHeap) Less(i, j int) bool { return h[i].pass < h[j].pass }
func (h wfHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *wfHeap) Push(x interface{}) {
	c := x.(*wfChild)
	c.index = len(*h)
	*h = append(*h, c)
}
func (h *wfHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.index = -1
	*h = old[:n-1]
	return c
}

// WeightedFairTrafficClass distributes the chosen Resource across children in
// proportion to their Share using stride scheduling: each child advances its
// pass counter by STRIDE1/share every time it is picked, and the runnable
// child with the smallest pass always runs next.
type WeightedFairTrafficClass struct {
	*base

	resource Resource
	runnable wfHeap
	blocked  map[node]*wfChild
}

// NewWeightedFairTrafficClass creates an empty weighted-fair node sharing
// the given resource dimension across its children.
func NewWeightedFairTrafficClass(name string, resource Resource) *WeightedFairTrafficClass {
	return &WeightedFairTrafficClass{
		base:     newBase(name, PolicyWeightedFair, true),
		resource: resource,
		blocked:  make(map[node]*wfChild),
	}
}

// heapMinPass returns the smallest pass among currently runnable children,
// or 0 if none are runnable.
func (w *WeightedFairTrafficClass) heapMinPass() uint64 {
	if len(w.runnable) == 0 {
		return 0
	}
	return w.runnable[0].pass
}

// AddChild inserts child with the given share. Share must be positive: a
// zero or negative share is rejected, leaving the node unchanged. A child
// added while the node is running starts at the current heap minimum pass
// rather than zero, so it neither wins an unearned head start nor owes a
// debt for passes it never competed in.
func (w *WeightedFairTrafficClass) AddChild(child node, share int) error {
	if share < 1 {
		return errors.ErrOutOfEnvelope
	}
	if child.Parent() != nil {
		return errors.ErrInvalidParent
	}
	child.setParent(w)
	c := &wfChild{child: child, share: share, stride: uint64(stride1) / uint64(share)}
	if child.Blocked() {
		w.blocked[child] = c
	} else {
		c.pass = w.heapMinPass()
		heap.Push(&w.runnable, c)
		w.unblockTowardsRootSetBlocked(0)
		if parent := w.Parent(); parent != nil {
			parent.UnblockTowardsRoot(0)
		}
	}
	return nil
}

func (w *WeightedFairTrafficClass) RemoveChild(child node) bool {
	if c, ok := w.blocked[child]; ok {
		delete(w.blocked, child)
		_ = c
		child.setParent(nil)
		return true
	}
	for i, c := range w.runnable {
		if c.child == child {
			heap.Remove(&w.runnable, i)
			child.setParent(nil)
			if len(w.runnable) == 0 {
				w.blockTowardsRootSetBlocked()
			}
			return true
		}
	}
	return false
}

func (w *WeightedFairTrafficClass) TraverseChildren(visit func(TCChildArgs)) {
	for _, c := range w.runnable {
		visit(TCChildArgs{ParentPolicy: PolicyWeightedFair, Child: c.child, Share: c.share})
	}
	for _, c := range w.blocked {
		visit(TCChildArgs{ParentPolicy: PolicyWeightedFair, Child: c.child, Share: c.share})
	}
}

// PickNextChild returns the runnable child with the smallest accumulated
// stride pass, without charging it yet: charging happens in
// FinishAndAccountTowardsRoot once the real usage the pick produced is
// known, in proportion to that usage rather than a flat per-pick charge.
func (w *WeightedFairTrafficClass) PickNextChild() node {
	if len(w.runnable) == 0 {
		return nil
	}
	return w.runnable[0].child
}

// findRunnable returns the wfChild entry for child if it is currently in
// the runnable heap, or nil if it has since been moved to the blocked set.
func (w *WeightedFairTrafficClass) findRunnable(child node) *wfChild {
	for _, c := range w.runnable {
		if c.child == child {
			return c
		}
	}
	return nil
}

// FinishAndAccountTowardsRoot charges the child that was just picked by
// stride_ × usage[resource_] — the resource dimension this node fair-shares
// — and restores heap order, per §4.3. A flat per-pick charge would make the
// fairness ratio independent of how much work each pick actually did; this
// charges proportionally to the usage the just-completed invocation
// reported.
func (w *WeightedFairTrafficClass) FinishAndAccountTowardsRoot(q *WakeupQueue, child node, usage Usage, now uint64) {
	w.accumulate(usage)
	if c := w.findRunnable(child); c != nil {
		c.pass += c.stride * usage[w.resource]
		heap.Fix(&w.runnable, c.index)
	}
	if parent := w.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, w, usage, now)
	}
}

// UnblockTowardsRoot re-admits any children that became runnable while
// blocked. A child returning after a long absence is clamped to at least
// the current heap-minimum pass before rejoining the heap, so it cannot
// use passes it accrued zero demand during to win an unearned run of picks
// ahead of children that stayed runnable the whole time (§4.3 windfall
// prevention).
func (w *WeightedFairTrafficClass) UnblockTowardsRoot(now uint64) {
	for child, c := range w.blocked {
		if !child.Blocked() {
			delete(w.blocked, child)
			if floor := w.heapMinPass(); c.pass < floor {
				c.pass = floor
			}
			heap.Push(&w.runnable, c)
		}
	}
	if !w.unblockTowardsRootSetBlocked(now) {
		return
	}
	if parent := w.Parent(); parent != nil {
		parent.UnblockTowardsRoot(now)
	}
}

func (w *WeightedFairTrafficClass) BlockTowardsRoot() {
	for i := 0; i < len(w.runnable); {
		c := w.runnable[i]
		if c.child.Blocked() {
			heap.Remove(&w.runnable, i)
			w.blocked[c.child] = c
			continue
		}
		i++
	}
	if len(w.runnable) > 0 {
		return
	}
	if !w.blockTowardsRootSetBlocked() {
		return
	}
	if parent := w.Parent(); parent != nil {
		parent.BlockTowardsRoot()
	}
}

func (w *WeightedFairTrafficClass) size() int {
	n := 1
	for _, c := range w.runnable {
		n += c.child.size()
	}
	for child := range w.blocked {
		n += child.size()
	}
	return n
}

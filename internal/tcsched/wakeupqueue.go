package tcsched

import "container/heap"

// wakeupEntry is one pending wakeup: unblock node at time t.
type wakeupEntry struct {
	node node
	time uint64
}

type wakeupHeap []*wakeupEntry

func (h wakeupHeap) Len() int           { return len(h) }
func (h wakeupHeap) Less(i, j int) bool { return h[i].time < h[j].time }
func (h wakeupHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *wakeupHeap) Push(x interface{}) {
	*h = append(*h, x.(*wakeupEntry))
}
func (h *wakeupHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// WakeupQueue is a time-ordered min-priority queue of pending node wakeups,
// used by rate-limit nodes to schedule the moment a throttled child becomes
// runnable again. A node can have at most one pending wakeup at a time: a
// later Schedule call for a node that already has one pending is ignored,
// so the earliest-registered wakeup always wins. This matches the policy
// that a node newly throttled while already awaiting a previous wakeup
// keeps the original, earlier wakeup time rather than pushing it out.
type WakeupQueue struct {
	heap    wakeupHeap
	pending map[node]bool
}

// NewWakeupQueue creates an empty wakeup queue.
func NewWakeupQueue() *WakeupQueue {
	return &WakeupQueue{pending: make(map[node]bool)}
}

// Schedule registers a wakeup for n at time t. If n already has a pending
// wakeup, this call is a no-op: the first-scheduled wakeup wins.
func (q *WakeupQueue) Schedule(n node, t uint64) {
	if q.pending[n] {
		return
	}
	q.pending[n] = true
	heap.Push(&q.heap, &wakeupEntry{node: n, time: t})
}

// Cancel removes any pending wakeup for n, if one exists.
func (q *WakeupQueue) Cancel(n node) {
	if !q.pending[n] {
		return
	}
	for i, e := range q.heap {
		if e.node == n {
			heap.Remove(&q.heap, i)
			break
		}
	}
	delete(q.pending, n)
}

// Pending reports whether n currently has a wakeup registered.
func (q *WakeupQueue) Pending(n node) bool {
	return q.pending[n]
}

// DrainDue pops every wakeup whose time is <= now and calls fn on each
// node, in time order. It is the scheduler's hook for unblocking
// rate-limited subtrees as the clock advances.
func (q *WakeupQueue) DrainDue(now uint64, fn func(node)) {
	for len(q.heap) > 0 && q.heap[0].time <= now {
		e := heap.Pop(&q.heap).(*wakeupEntry)
		delete(q.pending, e.node)
		fn(e.node)
	}
}

// Len reports the number of pending wakeups.
func (q *WakeupQueue) Len() int { return len(q.heap) }

// NextWakeup returns the earliest pending wakeup time and true, or
// (0, false) if the queue is empty.
func (q *WakeupQueue) NextWakeup() (uint64, bool) {
	if len(q.heap) == 0 {
		return 0, false
	}
	return q.heap[0].time, true
}

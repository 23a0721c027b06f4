package tcsched

// TaskResult is the outcome of one CallableTask invocation: the resource
// usage it consumed and whether it has more work ready to run immediately.
type TaskResult struct {
	Usage   Usage
	Blocked bool // true if the task has no more work ready right now
}

// CallableTask is the external contract a leaf node drives. Attach is
// called once when the task is bound to a leaf; Detach when the leaf is
// torn down. Invoke is called by the scheduler each time the leaf is
// picked, and must return promptly: a task that blocks internally should
// instead report Blocked in its TaskResult and let the scheduler retry
// later via the wakeup queue.
type CallableTask interface {
	Attach(leaf *LeafTrafficClass)
	Detach()
	Invoke(now uint64) TaskResult
}

// LeafTrafficClass is a terminal node: it wraps a CallableTask and has no
// children. It starts unblocked, since whether work is available is a
// property of the task, discovered only once it runs.
type LeafTrafficClass struct {
	*base

	task CallableTask
}

// NewLeafTrafficClass creates a leaf bound to task, calling task.Attach.
func NewLeafTrafficClass(name string, task CallableTask) *LeafTrafficClass {
	l := &LeafTrafficClass{base: newBase(name, PolicyLeaf, false), task: task}
	task.Attach(l)
	return l
}

// Detach releases the underlying task, calling its Detach hook.
func (l *LeafTrafficClass) Detach() {
	if l.task != nil {
		l.task.Detach()
		l.task = nil
	}
}

// PickNextChild always returns nil: a leaf has no children to descend into.
func (l *LeafTrafficClass) PickNextChild() node { return nil }

func (l *LeafTrafficClass) RemoveChild(node) bool { return false }

func (l *LeafTrafficClass) TraverseChildren(func(TCChildArgs)) {}

// Invoke runs the bound task, updates this leaf's own stats, and propagates
// usage and any block transition up the tree.
func (l *LeafTrafficClass) Invoke(q *WakeupQueue, now uint64) TaskResult {
	result := l.task.Invoke(now)
	l.accumulate(result.Usage)

	if parent := l.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, l, result.Usage, now)
	}

	if result.Blocked {
		if l.blockTowardsRootSetBlocked() {
			if parent := l.Parent(); parent != nil {
				parent.BlockTowardsRoot()
			}
		}
	} else if l.unblockTowardsRootSetBlocked(now) {
		if parent := l.Parent(); parent != nil {
			parent.UnblockTowardsRoot(now)
		}
	}

	return result
}

// FinishAndAccountTowardsRoot exists to satisfy the node interface; a leaf
// is never itself the child argument of this call in the tree walk, since
// Invoke handles leaf-level accounting directly.
func (l *LeafTrafficClass) FinishAndAccountTowardsRoot(q *WakeupQueue, child node, usage Usage, now uint64) {
	l.accumulate(usage)
	if parent := l.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, l, usage, now)
	}
}

func (l *LeafTrafficClass) UnblockTowardsRoot(now uint64) {
	if !l.unblockTowardsRootSetBlocked(now) {
		return
	}
	if parent := l.Parent(); parent != nil {
		parent.UnblockTowardsRoot(now)
	}
}

func (l *LeafTrafficClass) BlockTowardsRoot() {
	if !l.blockTowardsRootSetBlocked() {
		return
	}
	if parent := l.Parent(); parent != nil {
		parent.BlockTowardsRoot()
	}
}

func (l *LeafTrafficClass) size() int { return 1 }

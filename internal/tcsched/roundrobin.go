package tcsched

import "github.com/pktsched/pktsched/pkg/errors"

// RoundRobinTrafficClass cycles through its children in a fixed insertion
// order, skipping any currently blocked. Unlike priority or weighted-fair
// there is no per-child parameter: every runnable child gets an equal turn.
type RoundRobinTrafficClass struct {
	*base

	children []node
	blocked  map[node]bool
	cursor   int
}

// NewRoundRobinTrafficClass creates an empty round-robin node.
func NewRoundRobinTrafficClass(name string) *RoundRobinTrafficClass {
	return &RoundRobinTrafficClass{base: newBase(name, PolicyRoundRobin, true), blocked: make(map[node]bool)}
}

// AddChild appends child to the rotation. It rejects child if child already
// has a parent, leaving both nodes unchanged.
func (r *RoundRobinTrafficClass) AddChild(child node) error {
	if child.Parent() != nil {
		return errors.ErrInvalidParent
	}
	child.setParent(r)
	r.children = append(r.children, child)
	if child.Blocked() {
		r.blocked[child] = true
	} else {
		r.unblockTowardsRootSetBlocked(0)
		if parent := r.Parent(); parent != nil {
			parent.UnblockTowardsRoot(0)
		}
	}
	return nil
}

func (r *RoundRobinTrafficClass) RemoveChild(child node) bool {
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			delete(r.blocked, child)
			child.setParent(nil)
			if r.cursor >= len(r.children) {
				r.cursor = 0
			}
			if len(r.children) == 0 {
				r.blockTowardsRootSetBlocked()
			}
			return true
		}
	}
	return false
}

func (r *RoundRobinTrafficClass) TraverseChildren(visit func(TCChildArgs)) {
	for _, c := range r.children {
		visit(TCChildArgs{ParentPolicy: PolicyRoundRobin, Child: c})
	}
}

// PickNextChild advances the cursor past any blocked children and returns
// the next runnable one, or nil if every child is blocked. The cursor is
// left pointing one past the returned child so the next call continues the
// rotation.
func (r *RoundRobinTrafficClass) PickNextChild() node {
	n := len(r.children)
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		c := r.children[idx]
		if !r.blocked[c] {
			r.cursor = (idx + 1) % n
			return c
		}
	}
	return nil
}

func (r *RoundRobinTrafficClass) FinishAndAccountTowardsRoot(q *WakeupQueue, child node, usage Usage, now uint64) {
	r.accumulate(usage)
	if parent := r.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, r, usage, now)
	}
}

func (r *RoundRobinTrafficClass) UnblockTowardsRoot(now uint64) {
	for c := range r.blocked {
		if !c.Blocked() {
			delete(r.blocked, c)
		}
	}
	if !r.unblockTowardsRootSetBlocked(now) {
		return
	}
	if parent := r.Parent(); parent != nil {
		parent.UnblockTowardsRoot(now)
	}
}

func (r *RoundRobinTrafficClass) BlockTowardsRoot() {
	allBlocked := true
	for _, c := range r.children {
		if c.Blocked() {
			r.blocked[c] = true
		} else {
			allBlocked = false
		}
	}
	if !allBlocked {
		return
	}
	if !r.blockTowardsRootSetBlocked() {
		return
	}
	if parent := r.Parent(); parent != nil {
		parent.BlockTowardsRoot()
	}
}

func (r *RoundRobinTrafficClass) size() int {
	n := 1
	for _, c := range r.children {
		n += c.size()
	}
	return n
}

package tcsched

import (
	"sort"

	"github.com/pktsched/pktsched/pkg/errors"
)

// priorityChild pairs a child node with its fixed priority. Lower values run
// first.
type priorityChild struct {
	child    node
	priority int
}

// PriorityTrafficClass runs its highest-priority runnable child to the
// exclusion of all others. Children are ordered once at AddChild time and
// kept sorted; PickNextChild walks from the front and returns the first
// unblocked child.
type PriorityTrafficClass struct {
	*base

	children []*priorityChild
}

// NewPriorityTrafficClass creates an empty priority node. It starts blocked,
// like every internal node with no children yet.
func NewPriorityTrafficClass(name string) *PriorityTrafficClass {
	return &PriorityTrafficClass{base: newBase(name, PolicyPriority, true)}
}

// AddChild inserts child at the given priority, lower runs first. Ties break
// by insertion order. It rejects child if child already has a parent,
// leaving both nodes unchanged.
func (p *PriorityTrafficClass) AddChild(child node, priority int) error {
	if child.Parent() != nil {
		return errors.ErrInvalidParent
	}
	child.setParent(p)
	p.children = append(p.children, &priorityChild{child: child, priority: priority})
	sort.SliceStable(p.children, func(i, j int) bool {
		return p.children[i].priority < p.children[j].priority
	})
	if !child.Blocked() {
		p.unblockTowardsRootSetBlocked(0)
		if p.Parent() != nil {
			p.Parent().UnblockTowardsRoot(0)
		}
	}
	return nil
}

func (p *PriorityTrafficClass) RemoveChild(child node) bool {
	for i, c := range p.children {
		if c.child == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			child.setParent(nil)
			if len(p.children) == 0 {
				p.blockTowardsRootSetBlocked()
			}
			return true
		}
	}
	return false
}

func (p *PriorityTrafficClass) TraverseChildren(visit func(TCChildArgs)) {
	for _, c := range p.children {
		visit(TCChildArgs{ParentPolicy: PolicyPriority, Child: c.child, Priority: c.priority})
	}
}

// PickNextChild returns the highest-priority unblocked child, or nil if none
// is runnable.
func (p *PriorityTrafficClass) PickNextChild() node {
	for _, c := range p.children {
		if !c.child.Blocked() {
			return c.child
		}
	}
	return nil
}

func (p *PriorityTrafficClass) FinishAndAccountTowardsRoot(q *WakeupQueue, child node, usage Usage, now uint64) {
	p.accumulate(usage)
	if parent := p.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, p, usage, now)
	}
}

// UnblockTowardsRoot is called when a descendant just became runnable. A
// priority node only needs to notify its own parent the first time it
// transitions from fully-blocked to having a runnable child.
func (p *PriorityTrafficClass) UnblockTowardsRoot(now uint64) {
	if !p.unblockTowardsRootSetBlocked(now) {
		return
	}
	if parent := p.Parent(); parent != nil {
		parent.UnblockTowardsRoot(now)
	}
}

// BlockTowardsRoot is called when the caller believes this node may have no
// runnable children left. It re-checks before propagating, since another
// child may still be runnable.
func (p *PriorityTrafficClass) BlockTowardsRoot() {
	for _, c := range p.children {
		if !c.child.Blocked() {
			return
		}
	}
	if !p.blockTowardsRootSetBlocked() {
		return
	}
	if parent := p.Parent(); parent != nil {
		parent.BlockTowardsRoot()
	}
}

func (p *PriorityTrafficClass) size() int {
	n := 1
	for _, c := range p.children {
		n += c.child.size()
	}
	return n
}

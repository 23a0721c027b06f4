package tcsched

import (
	"testing"

	"github.com/pktsched/pktsched/pkg/errors"
)

func TestPriorityTrafficClass_PicksHighestPriorityRunnable(t *testing.T) {
	p := NewPriorityTrafficClass("root")

	low := NewLeafTrafficClass("low", newCountingTask(-1, Usage{1, 0, 0, 0}))
	high := NewLeafTrafficClass("high", newCountingTask(-1, Usage{1, 0, 0, 0}))

	p.AddChild(low, 10)
	p.AddChild(high, 0)

	if got := p.PickNextChild(); got != high {
		t.Fatalf("expected high-priority child picked first, got %v", got.Name())
	}
}

func TestPriorityTrafficClass_FallsBackWhenHigherBlocked(t *testing.T) {
	p := NewPriorityTrafficClass("root")

	low := NewLeafTrafficClass("low", newCountingTask(-1, Usage{1, 0, 0, 0}))
	high := NewLeafTrafficClass("high", newCountingTask(1, Usage{1, 0, 0, 0}))

	p.AddChild(low, 10)
	p.AddChild(high, 0)

	q := NewWakeupQueue()
	// Exhaust high's single-invoke budget so it blocks.
	high.Invoke(q, 0)

	if got := p.PickNextChild(); got != low {
		t.Fatalf("expected low-priority child once high is blocked, got %v", got.Name())
	}
}

func TestPriorityTrafficClass_BlocksWhenAllChildrenBlocked(t *testing.T) {
	p := NewPriorityTrafficClass("root")
	leaf := NewLeafTrafficClass("only", newCountingTask(1, Usage{1, 0, 0, 0}))
	p.AddChild(leaf, 0)

	if p.Blocked() {
		t.Fatal("priority node with a runnable child should not be blocked")
	}

	q := NewWakeupQueue()
	leaf.Invoke(q, 0)
	p.BlockTowardsRoot()

	if !p.Blocked() {
		t.Fatal("priority node should be blocked once its only child is blocked")
	}
}

func TestPriorityTrafficClass_RemoveChild(t *testing.T) {
	p := NewPriorityTrafficClass("root")
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))
	p.AddChild(a, 0)

	if !p.RemoveChild(a) {
		t.Fatal("expected RemoveChild to succeed for an attached child")
	}
	if p.RemoveChild(a) {
		t.Fatal("expected RemoveChild to fail the second time")
	}
	if a.Parent() != nil {
		t.Fatal("removed child should have nil parent")
	}
}

func TestPriorityTrafficClass_AlreadyParentedRejected(t *testing.T) {
	p1 := NewPriorityTrafficClass("root1")
	p2 := NewPriorityTrafficClass("root2")
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))

	if err := p1.AddChild(a, 0); err != nil {
		t.Fatalf("unexpected error on first AddChild: %v", err)
	}
	if err := p2.AddChild(a, 0); !errors.IsInvalidParentError(err) {
		t.Fatalf("expected invalid-parent error on re-attach, got %v", err)
	}
	if len(p2.children) != 0 {
		t.Fatal("expected p2 to remain untouched after rejected attach")
	}
}

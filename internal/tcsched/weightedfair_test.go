package tcsched

import (
	"testing"

	"github.com/pktsched/pktsched/pkg/errors"
)

func TestWeightedFairTrafficClass_RatioApproximatesShare(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)

	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{1, 0, 0, 0}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{1, 0, 0, 0}))

	w.AddChild(a, 1)
	w.AddChild(b, 3)

	picks := map[string]int{}
	q := NewWakeupQueue()
	for i := 0; i < 4000; i++ {
		n := w.PickNextChild()
		leaf := n.(*LeafTrafficClass)
		picks[leaf.Name()]++
		leaf.Invoke(q, uint64(i))
	}

	ratio := float64(picks["b"]) / float64(picks["a"])
	if ratio < 2.5 || ratio > 3.5 {
		t.Fatalf("expected b:a pick ratio near 3:1, got %d:%d (ratio %.2f)", picks["b"], picks["a"], ratio)
	}
}

func TestWeightedFairTrafficClass_SkipsBlockedChildren(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)

	a := NewLeafTrafficClass("a", newCountingTask(1, Usage{1, 0, 0, 0}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{1, 0, 0, 0}))

	w.AddChild(a, 1)
	w.AddChild(b, 1)

	q := NewWakeupQueue()
	a.Invoke(q, 0) // exhausts a's budget, blocks it
	w.BlockTowardsRoot()

	for i := 0; i < 10; i++ {
		n := w.PickNextChild()
		if n != b {
			t.Fatalf("expected only b to be picked once a is blocked, got %v", n.Name())
		}
		n.(*LeafTrafficClass).Invoke(q, uint64(i))
	}
}

func TestWeightedFairTrafficClass_ZeroShareRejected(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))

	if err := w.AddChild(a, 0); !errors.IsOutOfEnvelopeError(err) {
		t.Fatalf("expected out-of-envelope error for zero share, got %v", err)
	}
	if a.Parent() != nil {
		t.Fatalf("expected rejected child to remain unparented")
	}
	if len(w.runnable) != 0 {
		t.Fatalf("expected no node registered for rejected child")
	}
}

func TestWeightedFairTrafficClass_NegativeShareRejected(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))

	if err := w.AddChild(a, -1); !errors.IsOutOfEnvelopeError(err) {
		t.Fatalf("expected out-of-envelope error for negative share, got %v", err)
	}
}

func TestWeightedFairTrafficClass_AlreadyParentedRejected(t *testing.T) {
	w1 := NewWeightedFairTrafficClass("root1", ResourceCount)
	w2 := NewWeightedFairTrafficClass("root2", ResourceCount)
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))

	if err := w1.AddChild(a, 1); err != nil {
		t.Fatalf("unexpected error on first AddChild: %v", err)
	}
	if err := w2.AddChild(a, 1); !errors.IsInvalidParentError(err) {
		t.Fatalf("expected invalid-parent error on re-attach, got %v", err)
	}
	if len(w2.runnable) != 0 {
		t.Fatalf("expected w2 to remain untouched after rejected attach")
	}
}

// TestWeightedFairTrafficClass_ChargesByUsageNotFlatStride pins that the pass
// advance is proportional to reported usage, not a flat per-pick stride: two
// equal-share children picked once each, but one reporting 4x the usage of
// the other, must not land back at the same pass.
func TestWeightedFairTrafficClass_ChargesByUsageNotFlatStride(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{1, 0, 0, 0}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{4, 0, 0, 0}))

	if err := w.AddChild(a, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.AddChild(b, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := NewWakeupQueue()
	n := w.PickNextChild()
	n.(*LeafTrafficClass).Invoke(q, 0)

	n2 := w.PickNextChild()
	n2.(*LeafTrafficClass).Invoke(q, 1)

	var heavier, lighter *wfChild
	for _, c := range w.runnable {
		if c.child.Name() == "a" {
			lighter = c
		} else {
			heavier = c
		}
	}
	if heavier.pass <= lighter.pass {
		t.Fatalf("expected b (usage 4) to accrue more pass than a (usage 1): a=%d b=%d", lighter.pass, heavier.pass)
	}
}

// TestWeightedFairTrafficClass_UnblockClampsToHeapMinPass pins the windfall
// prevention rule: a child returning from a long block must not resume at a
// stale low pass and monopolize the node ahead of children that stayed
// runnable.
func TestWeightedFairTrafficClass_UnblockClampsToHeapMinPass(t *testing.T) {
	w := NewWeightedFairTrafficClass("root", ResourceCount)
	a := NewLeafTrafficClass("a", newCountingTask(1, Usage{1, 0, 0, 0}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{1, 0, 0, 0}))

	w.AddChild(a, 1)
	w.AddChild(b, 1)

	q := NewWakeupQueue()
	a.Invoke(q, 0) // exhausts a's budget, blocks it
	w.BlockTowardsRoot()

	for i := 0; i < 50; i++ {
		n := w.PickNextChild()
		n.(*LeafTrafficClass).Invoke(q, uint64(i))
	}

	minPass := w.heapMinPass()
	for _, c := range w.blocked {
		c.pass = 0 // simulate a's pass having frozen far in the past
	}

	a.unblockTowardsRootSetBlocked(0)
	w.UnblockTowardsRoot(0)

	for _, c := range w.runnable {
		if c.child == a && c.pass < minPass {
			t.Fatalf("expected a's pass clamped to heap-min %d on unblock, got %d", minPass, c.pass)
		}
	}
}

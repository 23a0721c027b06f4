package tcsched

import (
	"testing"

	"github.com/pktsched/pktsched/pkg/errors"
)

func TestRoundRobinTrafficClass_CyclesInOrder(t *testing.T) {
	r := NewRoundRobinTrafficClass("root")

	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{}))
	c := NewLeafTrafficClass("c", newCountingTask(-1, Usage{}))

	r.AddChild(a)
	r.AddChild(b)
	r.AddChild(c)

	q := NewWakeupQueue()
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, w := range want {
		n := r.PickNextChild()
		if n.Name() != w {
			t.Fatalf("pick %d: got %s, want %s", i, n.Name(), w)
		}
		n.(*LeafTrafficClass).Invoke(q, uint64(i))
	}
}

func TestRoundRobinTrafficClass_SkipsBlockedChild(t *testing.T) {
	r := NewRoundRobinTrafficClass("root")

	a := NewLeafTrafficClass("a", newCountingTask(1, Usage{}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{}))

	r.AddChild(a)
	r.AddChild(b)

	q := NewWakeupQueue()
	a.Invoke(q, 0) // blocks a
	r.blocked[a] = true

	for i := 0; i < 3; i++ {
		n := r.PickNextChild()
		if n != b {
			t.Fatalf("expected b to run repeatedly while a is blocked, got %s", n.Name())
		}
		n.(*LeafTrafficClass).Invoke(q, uint64(i))
	}
}

func TestRoundRobinTrafficClass_NoChildrenReturnsNil(t *testing.T) {
	r := NewRoundRobinTrafficClass("root")
	if n := r.PickNextChild(); n != nil {
		t.Fatalf("expected nil from empty round-robin node, got %v", n)
	}
}

func TestRoundRobinTrafficClass_AlreadyParentedRejected(t *testing.T) {
	r1 := NewRoundRobinTrafficClass("root1")
	r2 := NewRoundRobinTrafficClass("root2")
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{}))

	if err := r1.AddChild(a); err != nil {
		t.Fatalf("unexpected error on first AddChild: %v", err)
	}
	if err := r2.AddChild(a); !errors.IsInvalidParentError(err) {
		t.Fatalf("expected invalid-parent error on re-attach, got %v", err)
	}
	if len(r2.children) != 0 {
		t.Fatal("expected r2 to remain untouched after rejected attach")
	}
}

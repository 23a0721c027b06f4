package tcsched

import (
	"testing"

	"github.com/pktsched/pktsched/pkg/errors"
)

func TestRateLimitTrafficClass_ThrottlesOnceBucketExhausted(t *testing.T) {
	const tscHz = 1 << 30
	r := NewRateLimitTrafficClass("root", ResourceCount, 1000, 1000, tscHz)
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{10000, 0, 0, 0}))
	r.SetChild(leaf)

	q := NewWakeupQueue()

	if r.PickNextChild() == nil {
		t.Fatal("expected the child runnable before any usage is charged")
	}

	// Charge far more usage than the burst allowance: the bucket should go
	// negative and the node should throttle.
	r.FinishAndAccountTowardsRoot(q, leaf, Usage{1_000_000_000, 0, 0, 0}, 0)

	if r.PickNextChild() != nil {
		t.Fatal("expected rate-limit node to throttle after exceeding its burst allowance")
	}
	if r.Stats().CntThrottled != 1 {
		t.Fatalf("expected CntThrottled incremented, got %d", r.Stats().CntThrottled)
	}
	if q.Len() != 1 {
		t.Fatalf("expected a wakeup scheduled for the throttled node, got queue len %d", q.Len())
	}
}

func TestRateLimitTrafficClass_RefillsOverTime(t *testing.T) {
	const tscHz = 1 << 20
	r := NewRateLimitTrafficClass("root", ResourceCount, 1_000_000, 1_000_000, tscHz)
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{}))
	r.SetChild(leaf)

	q := NewWakeupQueue()
	r.FinishAndAccountTowardsRoot(q, leaf, Usage{100_000_000, 0, 0, 0}, 0)
	if r.PickNextChild() != nil {
		t.Fatal("expected throttled immediately after a large charge")
	}

	wakeup, ok := q.NextWakeup()
	if !ok {
		t.Fatal("expected a pending wakeup")
	}

	// The deficit divides the per-cycle rate exactly here, so the bucket is
	// back at exactly zero on the wakeup cycle and positive one cycle later.
	r.UnblockTowardsRoot(wakeup + 1)
	if r.PickNextChild() == nil {
		t.Fatal("expected the node to become runnable again once enough time has passed")
	}
}

func TestRateLimitTrafficClass_NoChildIsNotRunnable(t *testing.T) {
	r := NewRateLimitTrafficClass("root", ResourceCount, 1000, 1000, 1<<30)
	if r.PickNextChild() != nil {
		t.Fatal("expected nil with no child attached")
	}
}

func TestRateLimitTrafficClass_AlreadyParentedRejected(t *testing.T) {
	r1 := NewRateLimitTrafficClass("root1", ResourceCount, 1000, 1000, 1<<30)
	r2 := NewRateLimitTrafficClass("root2", ResourceCount, 1000, 1000, 1<<30)
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{}))

	if err := r1.SetChild(leaf); err != nil {
		t.Fatalf("unexpected error on first SetChild: %v", err)
	}
	if err := r2.SetChild(leaf); !errors.IsInvalidParentError(err) {
		t.Fatalf("expected invalid-parent error on re-attach, got %v", err)
	}
	if r2.child != nil {
		t.Fatal("expected r2 to remain untouched after rejected attach")
	}
}

// TestRateLimitTrafficClass_ZeroLimitIsUnlimited pins that a zero limit_
// means the node is transparent except for accounting: it never throttles
// its child no matter how much usage is charged.
func TestRateLimitTrafficClass_ZeroLimitIsUnlimited(t *testing.T) {
	r := NewRateLimitTrafficClass("root", ResourceBit, 0, 0, 1<<30)
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{}))
	r.SetChild(leaf)

	q := NewWakeupQueue()
	r.FinishAndAccountTowardsRoot(q, leaf, Usage{0, 0, 0, 1_000_000_000_000}, 0)

	if r.PickNextChild() == nil {
		t.Fatal("expected a zero-limit node to never throttle its child")
	}
	if r.Stats().CntThrottled != 0 {
		t.Fatalf("expected no throttle count for an unlimited node, got %d", r.Stats().CntThrottled)
	}
	if q.Len() != 0 {
		t.Fatalf("expected no wakeup scheduled for an unlimited node, got queue len %d", q.Len())
	}

	r.UnblockTowardsRoot(0)
	if r.PickNextChild() == nil {
		t.Fatal("expected the unlimited node to remain runnable after UnblockTowardsRoot")
	}
}

// TestRateLimitTrafficClass_GbpsScaleWaitIsBitExact pins the refill and wait
// formulas at a realistic line-rate scale: a 10 Gbps limit on a 3 GHz TSC.
// With the old code's spurious tscHz factors in refill and the wait
// calculation, this scale (far from the narrow values the other tests use)
// would produce a wakeup many orders of magnitude too early or too late.
func TestRateLimitTrafficClass_GbpsScaleWaitIsBitExact(t *testing.T) {
	const (
		tscHz    = 3_000_000_000  // 3 GHz
		limit    = 10_000_000_000 // 10 Gbps
		maxBurst = 1_000_000_000  // 1 Gbit of burst allowance
		charge   = 50_000_000_000 // 50 Gbit in one shot, well past the burst
	)
	r := NewRateLimitTrafficClass("root", ResourceBit, limit, maxBurst, tscHz)
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{}))
	r.SetChild(leaf)

	q := NewWakeupQueue()
	r.FinishAndAccountTowardsRoot(q, leaf, Usage{0, 0, 0, charge}, 0)

	if r.PickNextChild() != nil {
		t.Fatal("expected the node to throttle after a charge far exceeding its burst")
	}

	wakeup, ok := q.NextWakeup()
	if !ok {
		t.Fatal("expected a pending wakeup")
	}

	rate := ToWorkUnits(limit, tscHz)
	chargeWork := ToWorkUnits(charge, tscHz)
	burstWork := ToWorkUnits(maxBurst, tscHz)
	deficit := chargeWork - burstWork
	wantWait := (deficit + rate - 1) / rate
	if wakeup != wantWait {
		t.Fatalf("expected wakeup at cycle %d (bit-exact ceil-division wait), got %d", wantWait, wakeup)
	}

	// One cycle short of the computed wakeup, the bucket must still be empty.
	r.UnblockTowardsRoot(wakeup - 1)
	if r.PickNextChild() != nil {
		t.Fatal("expected the node to remain throttled one cycle before its computed wakeup")
	}

	r.UnblockTowardsRoot(wakeup)
	if r.PickNextChild() == nil {
		t.Fatal("expected the node to become runnable exactly at its computed wakeup")
	}
}

package tcsched

import "github.com/pktsched/pktsched/pkg/errors"

// RateLimitTrafficClass throttles its single child to at most Limit
// resource-units/sec (in the dimension named by Resource), with MaxBurst
// additional units of slack accumulated while idle. It holds a token
// bucket denominated in work units (see ToWorkUnits): whenever usage is
// charged or an unblock is attempted, the bucket is refilled by
// elapsed-cycles-worth of work, capped at MaxBurst work units, and a pick
// is only permitted while tokens are positive.
type RateLimitTrafficClass struct {
	*base

	resource   Resource
	limit      uint64 // resource units/sec
	maxBurst   uint64 // resource units of burst allowance
	tscHz      uint64
	tokens     int64 // work units currently available, may go negative transiently
	maxTokens  int64
	refillRate uint64 // work units added per cycle

	child        node
	lastRefillAt uint64
}

// NewRateLimitTrafficClass creates a rate-limit node throttling resource to
// limit units/sec with the given burst allowance, given the host's TSC
// frequency in Hz.
func NewRateLimitTrafficClass(name string, resource Resource, limit, maxBurst, tscHz uint64) *RateLimitTrafficClass {
	maxTokens := int64(ToWorkUnits(maxBurst, tscHz))
	return &RateLimitTrafficClass{
		base:      newBase(name, PolicyRateLimit, true),
		resource:  resource,
		limit:     limit,
		maxBurst:  maxBurst,
		tscHz:     tscHz,
		maxTokens: maxTokens,
		tokens:    maxTokens,
	}
}

// SetChild attaches the single child this node throttles. It rejects child
// if child already has a parent, leaving both nodes unchanged; otherwise it
// replaces any previously attached child.
func (r *RateLimitTrafficClass) SetChild(child node) error {
	if child.Parent() != nil {
		return errors.ErrInvalidParent
	}
	child.setParent(r)
	r.child = child
	if !child.Blocked() {
		r.unblockTowardsRootSetBlocked(0)
		if parent := r.Parent(); parent != nil {
			parent.UnblockTowardsRoot(0)
		}
	}
	return nil
}

func (r *RateLimitTrafficClass) RemoveChild(child node) bool {
	if r.child != child {
		return false
	}
	r.child = nil
	child.setParent(nil)
	r.blockTowardsRootSetBlocked()
	return true
}

func (r *RateLimitTrafficClass) TraverseChildren(visit func(TCChildArgs)) {
	if r.child != nil {
		visit(TCChildArgs{ParentPolicy: PolicyRateLimit, Child: r.child})
	}
}

// refill tops up the token bucket for elapsed cycles since the last refill,
// capped at maxTokens. limit is already expressed in work-units/cycle by
// ToWorkUnits, so the amount added is simply rate × elapsed cycles — no
// further division by tscHz. A zero limit contributes no refill, which is
// harmless: a zero-limit node never consults tokens to begin with.
func (r *RateLimitTrafficClass) refill(now uint64) {
	if now <= r.lastRefillAt {
		return
	}
	elapsed := now - r.lastRefillAt
	r.lastRefillAt = now
	rate := int64(ToWorkUnits(r.limit, r.tscHz))
	r.tokens += rate * int64(elapsed)
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// PickNextChild returns the child if tokens are positive, else nil (the
// subtree is throttled until the bucket refills). It does not refill the
// bucket itself: refill happens only in FinishAndAccountTowardsRoot and
// UnblockTowardsRoot. A zero limit means "unlimited": the node is transparent
// except for accounting and never withholds its child.
func (r *RateLimitTrafficClass) PickNextChild() node {
	if r.child == nil || r.child.Blocked() {
		return nil
	}
	if r.limit != 0 && r.tokens <= 0 {
		return nil
	}
	return r.child
}

// FinishAndAccountTowardsRoot charges the task's usage (converted to work
// units in the throttled resource dimension) against the token bucket. If
// the bucket goes empty and the node is actually rate-limited (limit != 0),
// the node throttles itself and schedules a wakeup for the cycle at which
// enough tokens will have accrued.
func (r *RateLimitTrafficClass) FinishAndAccountTowardsRoot(q *WakeupQueue, child node, usage Usage, now uint64) {
	r.accumulate(usage)
	r.refill(now)
	charge := int64(ToWorkUnits(usage[r.resource], r.tscHz))
	r.tokens -= charge
	if r.limit != 0 && r.tokens <= 0 {
		r.base.mu.Lock()
		r.stats.CntThrottled++
		r.base.mu.Unlock()
		deficit := uint64(-r.tokens)
		rate := ToWorkUnits(r.limit, r.tscHz)
		var waitCycles uint64
		if rate > 0 {
			waitCycles = (deficit + rate - 1) / rate
		}
		q.Schedule(r, now+waitCycles)
		r.blockTowardsRootSetBlocked()
		if parent := r.Parent(); parent != nil {
			parent.BlockTowardsRoot()
		}
	}
	if parent := r.Parent(); parent != nil {
		parent.FinishAndAccountTowardsRoot(q, r, usage, now)
	}
}

func (r *RateLimitTrafficClass) UnblockTowardsRoot(now uint64) {
	r.refill(now)
	if r.limit != 0 && r.tokens <= 0 {
		return
	}
	if !r.unblockTowardsRootSetBlocked(now) {
		return
	}
	if parent := r.Parent(); parent != nil {
		parent.UnblockTowardsRoot(now)
	}
}

func (r *RateLimitTrafficClass) BlockTowardsRoot() {
	if r.child == nil || !r.child.Blocked() {
		return
	}
	if !r.blockTowardsRootSetBlocked() {
		return
	}
	if parent := r.Parent(); parent != nil {
		parent.BlockTowardsRoot()
	}
}

func (r *RateLimitTrafficClass) size() int {
	if r.child == nil {
		return 1
	}
	return 1 + r.child.size()
}

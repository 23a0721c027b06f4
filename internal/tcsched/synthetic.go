package tcsched

import "math/rand"

// SyntheticTask is a CallableTask that reports a configurable, optionally
// jittered resource usage on every invocation and never blocks. It exists
// for benchmarking and declarative-config trees that want load without a
// real workload behind them.
type SyntheticTask struct {
	leaf       *LeafTrafficClass
	baseUsage  Usage
	jitterPct  int // 0-100, percent of baseUsage to randomly vary by
	rng        *rand.Rand
}

// NewSyntheticTask creates a task reporting baseUsage per invocation,
// randomly varied by up to jitterPct percent using the given source. A nil
// source disables jitter regardless of jitterPct.
func NewSyntheticTask(baseUsage Usage, jitterPct int, rng *rand.Rand) *SyntheticTask {
	return &SyntheticTask{baseUsage: baseUsage, jitterPct: jitterPct, rng: rng}
}

func (s *SyntheticTask) Attach(leaf *LeafTrafficClass) { s.leaf = leaf }
func (s *SyntheticTask) Detach()                       { s.leaf = nil }

func (s *SyntheticTask) Invoke(now uint64) TaskResult {
	usage := s.baseUsage
	if s.rng != nil && s.jitterPct > 0 {
		for i := range usage {
			if usage[i] == 0 {
				continue
			}
			spread := int64(usage[i]) * int64(s.jitterPct) / 100
			delta := s.rng.Int63n(2*spread+1) - spread
			usage[i] = uint64(int64(usage[i]) + delta)
		}
	}
	return TaskResult{Usage: usage, Blocked: false}
}

package tcsched

import (
	"context"
	"testing"
	"time"

	"github.com/pktsched/pktsched/pkg/utils"
)

var fixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScheduler_TickRunsOneLeafPerTick(t *testing.T) {
	root := NewRoundRobinTrafficClass("root")
	a := NewLeafTrafficClass("a", newCountingTask(-1, Usage{1, 0, 0, 0}))
	b := NewLeafTrafficClass("b", newCountingTask(-1, Usage{1, 0, 0, 0}))
	root.AddChild(a)
	root.AddChild(b)

	clock := utils.NewMockClock(fixedTime)
	s := NewScheduler("test-tree", root, 1<<30, clock)

	ctx := context.Background()
	ran := s.Tick(ctx, 100)
	if !ran {
		t.Fatal("expected first tick to run a leaf")
	}

	stats := root.Stats()
	if stats.Usage[ResourceCount] != 1 {
		t.Fatalf("expected root usage accumulated to 1, got %d", stats.Usage[ResourceCount])
	}
}

func TestScheduler_BlockedRootYieldsNoTick(t *testing.T) {
	root := NewPriorityTrafficClass("root")
	s := NewScheduler("empty-tree", root, 1<<30, utils.NewMockClock(fixedTime))

	if s.Tick(context.Background(), 1) {
		t.Fatal("expected no tick to run against an empty, blocked tree")
	}
}

func TestScheduler_SnapshotReflectsTreeShape(t *testing.T) {
	root := NewRoundRobinTrafficClass("root")
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{1, 0, 0, 0}))
	root.AddChild(leaf)

	s := NewScheduler("snap-tree", root, 1<<30, utils.NewMockClock(fixedTime))
	s.Tick(context.Background(), 10)

	snap := s.Snapshot()
	if snap.TreeName != "snap-tree" {
		t.Fatalf("unexpected tree name %q", snap.TreeName)
	}
	if len(snap.Nodes) != 2 {
		t.Fatalf("expected 2 nodes in snapshot (root + leaf), got %d", len(snap.Nodes))
	}
}

func TestScheduler_SnapshotCallbackFiresOnInterval(t *testing.T) {
	root := NewRoundRobinTrafficClass("root")
	leaf := NewLeafTrafficClass("leaf", newCountingTask(-1, Usage{1, 0, 0, 0}))
	root.AddChild(leaf)

	var got []Snapshot
	s := NewScheduler("snap-tree", root, 1<<30, utils.NewMockClock(fixedTime),
		WithSnapshots(2, func(snap Snapshot) { got = append(got, snap) }))

	ctx := context.Background()
	s.Tick(ctx, 1)
	if len(got) != 0 {
		t.Fatalf("expected no snapshot on tick 1, got %d", len(got))
	}
	s.Tick(ctx, 1)
	if len(got) != 1 {
		t.Fatalf("expected a snapshot on tick 2, got %d", len(got))
	}
}


package cmd

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pktsched/pktsched/internal/tcsched"
	"github.com/pktsched/pktsched/pkg/config"
	"github.com/pktsched/pktsched/pkg/utils"
)

// clockForCLI returns the real wall-clock Clock used by every CLI
// subcommand; tests exercise tcsched directly with utils.MockClock instead.
func clockForCLI() utils.Clock {
	return utils.NewRealClock()
}

// defaultTSCHz is the host TSC frequency used for every tree the CLI builds
// (the config has no field for it); it approximates a modern server CPU's
// base clock.
const defaultTSCHz = 2_400_000_000

// syntheticTaskFactory builds tcsched.CallableTask instances for leaf nodes
// whose Task field has the form "synthetic:<usage>[:<jitterPct>]", e.g.
// "synthetic:1000" or "synthetic:1000:10" for 10% jitter.
func syntheticTaskFactory(taskName string, node config.NodeConfig) (tcsched.CallableTask, error) {
	parts := strings.Split(taskName, ":")
	if len(parts) < 2 || parts[0] != "synthetic" {
		return nil, fmt.Errorf("unrecognized task %q: expected \"synthetic:<usage>[:<jitterPct>]\"", taskName)
	}

	usageVal, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid synthetic usage %q: %w", parts[1], err)
	}

	jitter := 0
	var rng *rand.Rand
	if len(parts) == 3 {
		jitter, err = strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid synthetic jitter %q: %w", parts[2], err)
		}
		rng = rand.New(rand.NewSource(int64(len(node.Name))))
	}

	var usage tcsched.Usage
	usage[tcsched.ResourceCount] = usageVal
	return tcsched.NewSyntheticTask(usage, jitter, rng), nil
}

// buildTree constructs a tree from cfg.Tree using a fresh builder, returning
// the scheduler that drives it. tscHz defaults to defaultTSCHz when cfg
// doesn't carry one.
func buildTree(cfg *config.Config) (*tcsched.Scheduler, error) {
	builder := tcsched.NewTrafficClassBuilder()

	root, err := builder.CreateTree(cfg.Tree.Root, defaultTSCHz, syntheticTaskFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree %q: %w", cfg.Tree.Name, err)
	}

	sched := tcsched.NewScheduler(cfg.Tree.Name, root, defaultTSCHz, clockForCLI(),
		tcsched.WithLogger(GetLogger()),
		tcsched.WithSnapshots(uint64(cfg.Scheduler.SnapshotInterval), nil),
		tcsched.WithHistory(cfg.Scheduler.HistorySize))
	return sched, nil
}

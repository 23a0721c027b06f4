package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pktsched/pktsched/internal/tcsched"
	"github.com/pktsched/pktsched/pkg/collections"
	"github.com/pktsched/pktsched/pkg/config"
	"github.com/pktsched/pktsched/pkg/parallel"
	"github.com/pktsched/pktsched/pkg/utils"
)

var (
	benchConfigPath string
	benchTrees      int
	benchTicks      uint64
)

// benchResult is one independent tree's outcome, summed across its leaves'
// ResourceCount usage.
type benchResult struct {
	treeIndex int
	ticksRun  uint64
	usage     uint64
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Simulate many independent copies of a tree concurrently",
	Long: `bench builds --trees independent copies of the tree described by
--config, each with its own TrafficClassBuilder registry (so node names
don't collide across copies), and runs each for --ticks ticks using a
bounded worker pool. It reports aggregate resource usage per tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(benchConfigPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		timer := utils.NewTimer("bench", utils.WithLogger(GetLogger()))
		buildPhase := timer.Start("build+simulate")

		indices := make([]int, benchTrees)
		for i := range indices {
			indices[i] = i
		}

		pool := parallel.NewWorkerPool[int, benchResult](
			parallel.DefaultPoolConfig().WithWorkers(cfg.Scheduler.BenchWorkerCount).WithMetrics(),
		)

		results := pool.ExecuteFunc(context.Background(), indices, func(ctx context.Context, idx int) (benchResult, error) {
			builder := tcsched.NewTrafficClassBuilder()
			root, err := builder.CreateTree(renameRoot(cfg.Tree.Root, idx), defaultTSCHz, syntheticTaskFactory)
			if err != nil {
				return benchResult{}, err
			}
			sched := tcsched.NewScheduler(fmt.Sprintf("%s-%d", cfg.Tree.Name, idx), root, defaultTSCHz, clockForCLI())

			var ticks uint64
			for ticks < benchTicks {
				sched.Tick(ctx, uint64(cfg.Scheduler.TickBatchSize))
				ticks++
			}

			snap := sched.Snapshot()
			counts := collections.GetUint64Slice()
			defer collections.PutUint64Slice(counts)
			for _, n := range snap.Nodes {
				if n.Policy != tcsched.PolicyLeaf.String() {
					continue
				}
				*counts = append(*counts, n.Usage[tcsched.ResourceCount])
			}
			var total uint64
			for _, c := range *counts {
				total += c
			}
			return benchResult{treeIndex: idx, ticksRun: ticks, usage: total}, nil
		})
		buildPhase.Stop()

		succeeded := collections.NewBitset(benchTrees)
		for _, r := range results {
			if r.Error != nil {
				GetLogger().Warn("tree %d failed: %v", r.Input, r.Error)
				continue
			}
			succeeded.Set(r.Input)
			GetLogger().Info("tree %d: %d ticks, total usage %d", r.Result.treeIndex, r.Result.ticksRun, r.Result.usage)
		}

		metrics := pool.Metrics()
		GetLogger().Info("bench complete: %d/%d trees succeeded, avg per-tree time %s", succeeded.Count(), benchTrees, metrics.AvgTaskTime)
		timer.PrintSummary()
		return nil
	},
}

// renameRoot returns a copy of root's config tree with every node name
// suffixed by the tree index, so concurrently-built trees never collide in
// a shared TrafficClassBuilder-free run (each bench worker uses its own
// builder, but suffixing keeps snapshot output unambiguous too).
func renameRoot(root config.NodeConfig, idx int) config.NodeConfig {
	renamed := root
	renamed.Name = fmt.Sprintf("%s-%d", root.Name, idx)
	renamed.Children = make([]config.NodeConfig, len(root.Children))
	for i, c := range root.Children {
		renamed.Children[i] = renameRoot(c, idx)
	}
	return renamed
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVarP(&benchConfigPath, "config", "c", "", "path to tree config file")
	benchCmd.Flags().IntVar(&benchTrees, "trees", 4, "number of independent tree instances to simulate")
	benchCmd.Flags().Uint64Var(&benchTicks, "ticks", 10000, "ticks to run per tree instance")
	benchCmd.MarkFlagRequired("config")
}

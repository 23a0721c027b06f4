package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pktsched/pktsched/pkg/config"
	"github.com/pktsched/pktsched/pkg/writer"
)

var (
	snapshotConfigPath  string
	snapshotShowHistory bool
	snapshotOutputPath  string
	snapshotGzip        bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build a tree from config, run it up to the next snapshot interval, and print statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(snapshotConfigPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		sched, err := buildTree(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		interval := uint64(cfg.Scheduler.SnapshotInterval)
		if interval == 0 {
			interval = 1
		}
		for i := uint64(0); i < interval; i++ {
			sched.Tick(ctx, uint64(cfg.Scheduler.TickBatchSize))
		}

		if snapshotOutputPath != "" {
			if snapshotShowHistory {
				return writeSnapshotFile(sched.History(), snapshotOutputPath, snapshotGzip)
			}
			return writeSnapshotFile(sched.Snapshot(), snapshotOutputPath, snapshotGzip)
		}

		var out []byte
		if snapshotShowHistory {
			out, err = json.MarshalIndent(sched.History(), "", "  ")
		} else {
			out, err = json.MarshalIndent(sched.Snapshot(), "", "  ")
		}
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

// writeSnapshotFile writes data to path as pretty JSON, or as gzipped JSON
// when gzipOut is set, via pkg/writer.
func writeSnapshotFile[T any](data T, path string, gzipOut bool) error {
	if gzipOut {
		return writer.NewGzipWriter[T]().WriteToFile(data, path)
	}
	return writer.NewPrettyJSONWriter[T]().WriteToFile(data, path)
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotConfigPath, "config", "c", "", "path to tree config file")
	snapshotCmd.Flags().BoolVar(&snapshotShowHistory, "history", false, "print the scheduler's retained snapshot history instead of the current snapshot")
	snapshotCmd.Flags().StringVarP(&snapshotOutputPath, "output", "o", "", "write the snapshot to this file instead of stdout")
	snapshotCmd.Flags().BoolVar(&snapshotGzip, "gzip", false, "gzip-compress the output file (requires --output)")
	snapshotCmd.MarkFlagRequired("config")
}

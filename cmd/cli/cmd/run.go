package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pktsched/pktsched/pkg/config"
)

var (
	runConfigPath string
	runMaxTicks   uint64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a tree from config and run it until interrupted or --max-ticks is reached",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath)
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

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		idleSleep := time.Duration(cfg.Scheduler.IdleSleepMillis) * time.Millisecond
		var ticks uint64
		for {
			select {
			case <-ctx.Done():
				GetLogger().Info("run interrupted after %d ticks", ticks)
				return nil
			default:
			}
			if runMaxTicks > 0 && ticks >= runMaxTicks {
				GetLogger().Info("reached max ticks (%d), stopping", runMaxTicks)
				return nil
			}
			ran := sched.Tick(ctx, uint64(cfg.Scheduler.TickBatchSize))
			ticks++
			if !ran {
				time.Sleep(idleSleep)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to tree config file")
	runCmd.Flags().Uint64Var(&runMaxTicks, "max-ticks", 0, "stop after this many ticks (0 = run until interrupted)")
	runCmd.MarkFlagRequired("config")
}

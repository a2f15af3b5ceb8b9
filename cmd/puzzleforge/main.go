// Command puzzleforge extracts tactical puzzles from a game archive by
// walking each game's played moves, detecting evaluation swings large
// enough to be blunders, and building a unique, unambiguous solving
// line for each one.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huandney/puzzleforge/internal/config"
	"github.com/huandney/puzzleforge/internal/orchestrator"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultRunConfig()

	cmd := &cobra.Command{
		Use:   "puzzleforge <archive>",
		Short: "Extract tactical puzzles from a chess game archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputPath = args[0]
			if cfg.OutputPath == "" {
				cfg.OutputPath = cfg.InputPath + ".puzzles"
			}
			return orchestrator.Run(context.Background(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.OutputPath, "output", "o", "", "output path (default: <archive>.puzzles)")
	flags.IntVarP(&cfg.BaseDepth, "depth", "d", cfg.BaseDepth, "base search depth")
	flags.BoolVarP(&cfg.Resume, "resume", "r", false, "resume a prior interrupted run")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.AnalyzerBin, "analyzer", "stockfish", "path to the UCI analyzer executable")
	flags.IntVar(&cfg.Threads, "threads", cfg.Threads, "analyzer search threads")
	flags.IntVar(&cfg.HashMiB, "hash", cfg.HashMiB, "analyzer hash table size in MiB")

	if paths := os.Getenv("SYZYGY_PATHS"); paths != "" {
		cfg.SyzygyPaths = filepath.SplitList(paths)
	}

	return cmd
}

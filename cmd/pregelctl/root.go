package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/avi3tal/pregel/internal/logging"
	"github.com/avi3tal/pregel/pkg/checkpoints"
	"github.com/avi3tal/pregel/pkg/types"
)

var rootCmd = &cobra.Command{
	Use:   "pregelctl",
	Short: "pregelctl replays channel step scripts",
	Long: `pregelctl drives a set of channels through the steps of a YAML script,
checkpointing after every step so a thread can be inspected or resumed later.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("script", "s", "steps.yaml", "Step script describing channels and writes")
	rootCmd.PersistentFlags().String("thread", "", "Thread ID (generated when empty)")
	rootCmd.PersistentFlags().String("store", "memory", "Checkpoint store: memory or redis")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address for the redis store")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}

func newStore(cmd *cobra.Command) (types.CheckpointStore, func() error, error) {
	kind, _ := cmd.Flags().GetString("store")
	switch kind {
	case "memory":
		return checkpoints.NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		addr, _ := cmd.Flags().GetString("redis-addr")
		store := checkpoints.NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), 0)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

func newConfig(cmd *cobra.Command, graphID string) types.Config {
	thread, _ := cmd.Flags().GetString("thread")
	verbose, _ := cmd.Flags().GetBool("verbose")
	var opts []types.Option
	if thread != "" {
		opts = append(opts, types.WithThreadID(thread))
	}
	if verbose {
		opts = append(opts, types.WithDebug())
	}
	return types.NewConfig(graphID, opts...)
}
